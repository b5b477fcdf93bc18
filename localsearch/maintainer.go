// Package localsearch implements the decision-repair search spec.md
// §4.4-§4.6 describes: a feasibility-tracking maintainer over the
// current Boolean assignment, a one-flip constraint repairer, and the
// depth-bounded iterator that drives them. Grounded on sat/trail.go's
// per-level trail slicing for the backtracking discipline and
// sat/heuristics.go's activity-ordered scan style for the repairer's
// descending-impact term list.
package localsearch

import (
	"math/rand"

	"github.com/latticeforge/bop/collections"
	"github.com/latticeforge/bop/core"
)

// ObjectiveConstraint is the reserved index of the distinguished
// objective row inside the maintainer, per spec.md §3.
const ObjectiveConstraint core.ConstraintIndex = 0

type entry struct {
	constraint core.ConstraintIndex
	coeff      int64
	positive   bool
}

type flipRecord struct {
	v   core.VariableIndex
	old bool
}

func contributes(val bool, e entry) int64 {
	if val == e.positive {
		return e.coeff
	}
	return 0
}

// Maintainer tracks, for the problem's constraints plus a distinguished
// objective row at index 0, the running sum of each row under a current
// Boolean assignment, a reference assignment known feasible, and a
// backtrackable set of currently-infeasible constraints (spec.md §4.4).
type Maintainer struct {
	problem *core.Problem
	rng     *rand.Rand

	byVar [][]entry

	lower []*int64
	upper []*int64
	sum   []int64

	reference []bool
	current   []bool

	infeasible *collections.BacktrackableIntegerSet

	flipped []flipRecord
	levels  []int // flipped-length snapshot at each push

	hasher       *collections.NonOrderedSetHasher
	oneFlipIndex map[uint64][]core.Lit
}

// NewMaintainer builds the sparse-by-variable index for problem's
// constraints; callers must call SetReferenceSolution before using it.
func NewMaintainer(problem *core.Problem, rng *rand.Rand) *Maintainer {
	m := &Maintainer{
		problem: problem,
		rng:     rng,
		byVar:   make([][]entry, problem.NumVariables),
		current: make([]bool, problem.NumVariables),
	}

	numRows := 1 + len(problem.Constraints)
	m.lower = make([]*int64, numRows)
	m.upper = make([]*int64, numRows)
	m.sum = make([]int64, numRows)

	for i, v := range problem.Objective.Literals {
		m.byVar[v] = append(m.byVar[v], entry{constraint: ObjectiveConstraint, coeff: problem.Objective.Coefficients[i], positive: true})
	}
	for ci, c := range problem.Constraints {
		row := core.ConstraintIndex(ci + 1)
		m.lower[row] = c.LowerBound
		m.upper[row] = c.UpperBound
		for i, lit := range c.Literals {
			m.byVar[lit.Var()] = append(m.byVar[lit.Var()], entry{constraint: row, coeff: c.Coefficients[i], positive: lit.IsPositive()})
		}
	}

	m.infeasible = collections.NewBacktrackableIntegerSet(numRows)
	return m
}

func (m *Maintainer) constraintFeasible(c core.ConstraintIndex) bool {
	if lb := m.lower[c]; lb != nil && m.sum[c] < *lb {
		return false
	}
	if ub := m.upper[c]; ub != nil && m.sum[c] > *ub {
		return false
	}
	return true
}

// ConstraintIsFeasible reports whether c currently holds; exported for
// the repairer's defensive superset re-checks.
func (m *Maintainer) ConstraintIsFeasible(c core.ConstraintIndex) bool { return m.constraintFeasible(c) }

// ConstraintSum returns c's current running sum.
func (m *Maintainer) ConstraintSum(c core.ConstraintIndex) int64 { return m.sum[c] }

// ConstraintBounds returns c's lower/upper bounds (either may be nil).
func (m *Maintainer) ConstraintBounds(c core.ConstraintIndex) (*int64, *int64) {
	return m.lower[c], m.upper[c]
}

// NumConstraints returns 1 + the problem's constraint count (row 0 is
// the objective).
func (m *Maintainer) NumConstraints() int { return len(m.sum) }

// Value reports v's current binding.
func (m *Maintainer) Value(v core.VariableIndex) bool { return m.current[v] }

// IsFeasible reports whether every constraint (including the objective
// row) currently holds.
func (m *Maintainer) IsFeasible() bool { return m.infeasible.Size() == 0 }

// PossiblyInfeasibleConstraints returns the defensive superset of rows
// that have ever been infeasible since creation; callers must re-check
// ConstraintIsFeasible before acting on an entry (spec.md §4.4).
func (m *Maintainer) PossiblyInfeasibleConstraints() []core.ConstraintIndex {
	superset := m.infeasible.Superset()
	out := make([]core.ConstraintIndex, len(superset))
	for i, c := range superset {
		out[i] = core.ConstraintIndex(c)
	}
	return out
}

// SetReferenceSolution resets current = reference = s's assignment,
// recomputes every row, clears the flip trail, and tightens the
// objective row's upper bound to cost-1 so any future feasible
// assignment is a strict improvement. s must already be feasible.
func (m *Maintainer) SetReferenceSolution(s *core.Solution) {
	m.reference = append([]bool(nil), s.Values()...)
	m.current = append([]bool(nil), s.Values()...)
	m.flipped = m.flipped[:0]
	m.levels = m.levels[:0]

	for i := range m.sum {
		m.sum[i] = 0
	}
	for v, val := range m.current {
		if !val {
			continue
		}
		for _, e := range m.byVar[v] {
			if e.positive {
				m.sum[e.constraint] += e.coeff
			}
		}
	}
	for v, val := range m.current {
		if val {
			continue
		}
		for _, e := range m.byVar[v] {
			if !e.positive {
				m.sum[e.constraint] += e.coeff
			}
		}
	}

	bound := s.Cost() - 1
	m.upper[ObjectiveConstraint] = &bound

	m.infeasible.BacktrackAll()
	for c := range m.sum {
		if !m.constraintFeasible(core.ConstraintIndex(c)) {
			m.infeasible.Add(c)
		}
	}
	m.AddBacktrackingLevel()
	m.oneFlipIndex = nil // rebuilt with fresh hash tags on the next lookup
}

// UseCurrentStateAsReference promotes the current assignment (assumed
// feasible and strictly better) to the new reference and resets the
// trail, keeping the current sums/assignment in place.
func (m *Maintainer) UseCurrentStateAsReference() {
	m.reference = append([]bool(nil), m.current...)
	m.flipped = m.flipped[:0]
	m.levels = m.levels[:0]
	bound := m.sum[ObjectiveConstraint] - 1
	// The objective row's upper bound tightens to the new reference cost
	// minus one, which the current assignment now violates.
	*m.upper[ObjectiveConstraint] = bound
	m.infeasible.Add(int(ObjectiveConstraint))
	m.AddBacktrackingLevel()
}

func (m *Maintainer) applyFlip(v core.VariableIndex, want bool) {
	old := m.current[v]
	if old == want {
		return
	}
	m.current[v] = want
	for _, e := range m.byVar[v] {
		wasFeasible := m.constraintFeasible(e.constraint)
		oldC := contributes(old, e)
		newC := contributes(want, e)
		m.sum[e.constraint] += newC - oldC
		nowFeasible := m.constraintFeasible(e.constraint)
		if wasFeasible && !nowFeasible {
			m.infeasible.Add(int(e.constraint))
		} else if !wasFeasible && nowFeasible {
			m.infeasible.Remove(int(e.constraint))
		}
	}
}

// Assign applies each literal to the current assignment, updating every
// constraint the flipped variable touches.
func (m *Maintainer) Assign(lits []core.Lit) {
	for _, lit := range lits {
		v, want := lit.Var(), lit.IsPositive()
		if m.current[v] == want {
			continue
		}
		m.flipped = append(m.flipped, flipRecord{v: v, old: m.current[v]})
		m.applyFlip(v, want)
	}
}

// AddBacktrackingLevel pushes a restore point.
func (m *Maintainer) AddBacktrackingLevel() {
	m.levels = append(m.levels, len(m.flipped))
	m.infeasible.AddBacktrackingLevel()
}

// BacktrackOneLevel undoes every flip recorded since the matching
// AddBacktrackingLevel, in reverse order. A no-op past the initial
// level.
func (m *Maintainer) BacktrackOneLevel() {
	if len(m.levels) == 0 {
		return
	}
	target := m.levels[len(m.levels)-1]
	m.levels = m.levels[:len(m.levels)-1]
	for len(m.flipped) > target {
		fr := m.flipped[len(m.flipped)-1]
		m.flipped = m.flipped[:len(m.flipped)-1]
		m.applyFlip(fr.v, fr.old)
	}
	m.infeasible.BacktrackOneLevel()
}

// BacktrackAll pops every pushed level back to the reference assignment.
func (m *Maintainer) BacktrackAll() {
	for len(m.levels) > 0 {
		m.BacktrackOneLevel()
	}
}

// ensureOneFlipIndex lazily builds, for every variable and flip
// direction, the XOR-hash of one tag per non-objective constraint the
// flip changes (2c+1 when it lowers c's sum, 2c when it raises it),
// keyed by that hash to the literal representing the flip. The hash
// depends only on the problem, not on the current sums.
// PotentialOneFlipRepairs looks up the current infeasible set's own hash
// (2c+1 for a row above its upper bound, 2c for one below its lower
// bound) in this index.
func (m *Maintainer) ensureOneFlipIndex() {
	if m.oneFlipIndex != nil {
		return
	}
	m.hasher = collections.NewNonOrderedSetHasher(2*len(m.sum), m.rng)
	m.oneFlipIndex = make(map[uint64][]core.Lit)

	for v := 0; v < len(m.current); v++ {
		for _, want := range [2]bool{true, false} {
			var tags []uint64
			for _, e := range m.byVar[v] {
				if e.constraint == ObjectiveConstraint {
					continue
				}
				oldC := contributes(!want, e)
				newC := contributes(want, e)
				if oldC == newC {
					continue
				}
				if newC < oldC {
					tags = append(tags, m.hasher.Tag(2*int(e.constraint)+1))
				} else {
					tags = append(tags, m.hasher.Tag(2*int(e.constraint)+0))
				}
			}
			var h uint64
			for _, tg := range tags {
				h ^= tg
			}
			lit := core.NewLit(core.VariableIndex(v), want)
			m.oneFlipIndex[h] = append(m.oneFlipIndex[h], lit)
		}
	}
}

// PotentialOneFlipRepairs returns the flips that change exactly the
// currently-infeasible non-objective constraints, each toward its
// violated bound, and whose literal disagrees with the current
// assignment (spec.md §4.4). Whether a flip lands a row within its bounds
// is not checked here.
func (m *Maintainer) PotentialOneFlipRepairs() []core.Lit {
	m.ensureOneFlipIndex()

	var h uint64
	for _, ci := range m.infeasible.Superset() {
		c := core.ConstraintIndex(ci)
		if c == ObjectiveConstraint || m.constraintFeasible(c) {
			continue
		}
		if ub := m.upper[c]; ub != nil && m.sum[c] > *ub {
			h ^= m.hasher.Tag(2*int(c) + 1)
		} else if lb := m.lower[c]; lb != nil && m.sum[c] < *lb {
			h ^= m.hasher.Tag(2 * int(c))
		}
	}

	var out []core.Lit
	for _, lit := range m.oneFlipIndex[h] {
		if m.current[lit.Var()] != lit.IsPositive() {
			out = append(out, lit)
		}
	}
	return out
}

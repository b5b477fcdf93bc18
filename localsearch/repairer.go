package localsearch

import (
	"sort"

	"github.com/latticeforge/bop/core"
)

type repairTerm struct {
	lit   core.Lit
	coeff int64
}

// Repairer chooses which currently-broken constraint to repair next and
// which of its terms to flip, per spec.md §4.5. Each constraint's term
// list is sorted descending by the absolute objective coefficient of the
// term's variable, so high-impact flips are tried first, the way
// sat/heuristics.go orders variables by activity.
type Repairer struct {
	maint  *Maintainer
	solver core.SatSolver
	terms  [][]repairTerm // terms[row]; row 0 holds the objective's terms
}

// NewRepairer builds the sorted term lists for the objective row and
// problem's constraints.
func NewRepairer(problem *core.Problem, maint *Maintainer, solver core.SatSolver) *Repairer {
	r := &Repairer{maint: maint, solver: solver}

	objAbs := make([]int64, problem.NumVariables)
	for i, v := range problem.Objective.Literals {
		c := problem.Objective.Coefficients[i]
		if c < 0 {
			c = -c
		}
		objAbs[v] = c
	}

	r.terms = make([][]repairTerm, 1+len(problem.Constraints))
	objTerms := make([]repairTerm, len(problem.Objective.Literals))
	for i, v := range problem.Objective.Literals {
		objTerms[i] = repairTerm{lit: core.NewLit(v, true), coeff: problem.Objective.Coefficients[i]}
	}
	sort.SliceStable(objTerms, func(i, j int) bool {
		return objAbs[objTerms[i].lit.Var()] > objAbs[objTerms[j].lit.Var()]
	})
	r.terms[ObjectiveConstraint] = objTerms
	for ci, c := range problem.Constraints {
		row := core.ConstraintIndex(ci + 1)
		ts := make([]repairTerm, len(c.Literals))
		for i, lit := range c.Literals {
			ts[i] = repairTerm{lit: lit, coeff: c.Coefficients[i]}
		}
		sort.SliceStable(ts, func(i, j int) bool {
			return objAbs[ts[i].lit.Var()] > objAbs[ts[j].lit.Var()]
		})
		r.terms[row] = ts
	}
	return r
}

// NumTerms returns the number of terms in constraint c.
func (r *Repairer) NumTerms(c core.ConstraintIndex) int { return len(r.terms[c]) }

func (r *Repairer) flipRepairs(t repairTerm, sum int64, lb, ub *int64) bool {
	v := t.lit.Var()
	old := r.maint.Value(v)
	want := !old
	var oldC, newC int64
	if old == t.lit.IsPositive() {
		oldC = t.coeff
	}
	if want == t.lit.IsPositive() {
		newC = t.coeff
	}
	newSum := sum - oldC + newC
	if lb != nil && newSum < *lb {
		return false
	}
	if ub != nil && newSum > *ub {
		return false
	}
	return true
}

func (r *Repairer) countRepairingTerms(c core.ConstraintIndex) int {
	lb, ub := r.maint.ConstraintBounds(c)
	sum := r.maint.ConstraintSum(c)
	count := 0
	for _, t := range r.terms[c] {
		if _, assigned := r.solver.Value(t.lit.Var()); assigned {
			continue
		}
		if r.flipRepairs(t, sum, lb, ub) {
			count++
		}
	}
	return count
}

// ConstraintToRepair returns the currently-broken constraint (the
// objective row included) with the fewest repairing one-flip candidates (the
// narrowest branch to explore first), or ok=false if none is broken. As
// a shortcut, when exactly one constraint is broken it is returned
// directly without counting.
func (r *Repairer) ConstraintToRepair() (c core.ConstraintIndex, ok bool) {
	superset := r.maint.PossiblyInfeasibleConstraints()
	var broken []core.ConstraintIndex
	for i := len(superset) - 1; i >= 0; i-- {
		cand := superset[i]
		if r.maint.ConstraintIsFeasible(cand) {
			continue
		}
		broken = append(broken, cand)
	}
	if len(broken) == 0 {
		return core.InvalidConstraint, false
	}
	if len(broken) == 1 {
		return broken[0], true
	}

	best := core.InvalidConstraint
	bestCount := -1
	for _, cand := range broken {
		count := r.countRepairingTerms(cand)
		if count > 0 && (bestCount == -1 || count < bestCount) {
			bestCount, best = count, cand
		}
	}
	if best == core.InvalidConstraint {
		return broken[0], true
	}
	return best, true
}

// NextRepairingTerm circularly scans c's term list starting at start+1,
// stopping when the scan comes back to init (a scan that begins at init
// covers every term once), and returns the first term whose
// variable is unassigned in the SAT solver and whose flip repairs c.
// Returns core.InvalidTerm if none qualifies.
func (r *Repairer) NextRepairingTerm(c core.ConstraintIndex, init, start core.TermIndex) core.TermIndex {
	terms := r.terms[c]
	n := core.TermIndex(len(terms))
	if n == 0 {
		return core.InvalidTerm
	}
	lb, ub := r.maint.ConstraintBounds(c)
	sum := r.maint.ConstraintSum(c)

	i := (start + 1) % n
	for visited := core.TermIndex(0); visited < n; visited++ {
		if visited > 0 && i == init {
			break
		}
		t := terms[i]
		if _, assigned := r.solver.Value(t.lit.Var()); !assigned && r.flipRepairs(t, sum, lb, ub) {
			return i
		}
		i = (i + 1) % n
	}
	return core.InvalidTerm
}

// RepairIsValid re-verifies that c is still infeasible, t's variable is
// still unassigned, and flipping it still lands the sum in range —
// needed on resume across Optimize calls, since SAT propagation between
// calls may have invalidated a previously valid search node.
func (r *Repairer) RepairIsValid(c core.ConstraintIndex, t core.TermIndex) bool {
	if r.maint.ConstraintIsFeasible(c) {
		return false
	}
	term := r.terms[c][t]
	if _, assigned := r.solver.Value(term.lit.Var()); assigned {
		return false
	}
	lb, ub := r.maint.ConstraintBounds(c)
	return r.flipRepairs(term, r.maint.ConstraintSum(c), lb, ub)
}

// GetFlip returns the literal with the opposite value of c's term t's
// current assignment.
func (r *Repairer) GetFlip(c core.ConstraintIndex, t core.TermIndex) core.Lit {
	term := r.terms[c][t]
	return core.NewLit(term.lit.Var(), !r.maint.Value(term.lit.Var()))
}

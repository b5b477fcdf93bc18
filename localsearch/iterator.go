package localsearch

import (
	"sort"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
)

// transpositionDepth fixes the transposition table's key width regardless
// of bopparams.Parameters.MaxNumDecisionsInLS (spec.md §9: enlarging it
// requires enlarging the key encoding too, which this module does not do).
const transpositionDepth = 4

// Result reports what a single NextAssignment step produced.
type Result int

const (
	// ResultContinue means the step made progress (or backtracked) but
	// reached no terminal state; call NextAssignment again.
	ResultContinue Result = iota
	// ResultImproved means the current assignment is feasible and was
	// promoted to the new reference solution.
	ResultImproved
	// ResultExhausted means the search tree rooted at the last reference
	// solution has been fully explored with no improvement found.
	ResultExhausted
)

// SearchNode is one pushed decision: constraint/term identify which
// repair candidate was taken (core.InvalidConstraint/core.InvalidTerm for
// a one-flip-repair probe), lit is the literal actually enqueued.
type SearchNode struct {
	constraint core.ConstraintIndex
	term       core.TermIndex
	lit        core.Lit
}

// Iterator is the LocalSearchAssignmentIterator of spec.md §4.6: a
// depth-bounded DFS over one-flip constraint repairs, pruned by a fixed-
// depth transposition table and, once at full depth, a one-flip-repair
// probe over the maintainer's precomputed index.
type Iterator struct {
	problem  *core.Problem
	maint    *Maintainer
	repairer *Repairer
	solver   core.SatSolver

	nodes            []SearchNode
	initialTermIndex map[core.ConstraintIndex]core.TermIndex

	maxDepth             int
	maxBrokenConstraints int
	useTransposition     bool
	useOneFlip           bool

	transposition map[[transpositionDepth]int32]bool

	rootUnsat bool
}

// NewIterator wires the iterator to its collaborators and reads its depth/
// breadth/feature-flag limits from params.
func NewIterator(problem *core.Problem, maint *Maintainer, repairer *Repairer, solver core.SatSolver, params *bopparams.Parameters) *Iterator {
	return &Iterator{
		problem:              problem,
		maint:                maint,
		repairer:             repairer,
		solver:               solver,
		initialTermIndex:     make(map[core.ConstraintIndex]core.TermIndex),
		maxDepth:             params.MaxNumDecisionsInLS,
		maxBrokenConstraints: params.MaxNumBrokenConstraintsInLS,
		useTransposition:     params.UseTranspositionTableInLS,
		useOneFlip:           params.UsePotentialOneFlipRepairsInLS,
		transposition:        make(map[[transpositionDepth]int32]bool),
	}
}

// EstimatedDeterministicTime approximates the wall-clock-independent time
// counter the portfolio scheduler budgets against: the SAT wrapper's own
// deterministic time, scaled up for the maintainer bookkeeping layered on
// top (spec.md §4.6).
func (it *Iterator) EstimatedDeterministicTime() float64 {
	return it.solver.DeterministicTime() * 1.2
}

// syncFromSolver copies every SAT-assigned variable's value into the
// maintainer, covering literals implied by unit propagation beyond the
// decision Iterator itself enqueued.
func (it *Iterator) syncFromSolver() {
	for v := 0; v < it.problem.NumVariables; v++ {
		val, assigned := it.solver.Value(core.VariableIndex(v))
		if !assigned {
			continue
		}
		if it.maint.Value(core.VariableIndex(v)) != val {
			it.maint.Assign([]core.Lit{core.NewLit(core.VariableIndex(v), val)})
		}
	}
}

// pushDecision enqueues lit in the SAT wrapper, backjumping and popping
// any of the iterator's own pushed levels the wrapper's conflict analysis
// undoes. Returns false if the decision could not be applied (a conflict
// consumed it, or one that backjumped past the root of this search).
func (it *Iterator) pushDecision(c core.ConstraintIndex, term core.TermIndex, lit core.Lit) bool {
	pushed := len(it.nodes)
	it.maint.AddBacktrackingLevel()
	undone := it.solver.EnqueueDecisionAndBackjumpOnConflict(lit)
	if undone > 0 {
		toUndo := undone
		if toUndo > len(it.nodes)+1 {
			toUndo = len(it.nodes) + 1
		}
		// The first undo corresponds to the level we just pushed for this
		// very decision (it never committed); the rest pop prior nodes.
		if toUndo > 0 {
			toUndo--
		}
		it.maint.BacktrackOneLevel() // undoes the level pushed above
		for i := 0; i < toUndo; i++ {
			it.maint.BacktrackOneLevel()
			it.nodes = it.nodes[:len(it.nodes)-1]
		}
		if undone > pushed+1 {
			it.rootUnsat = true
		}
		return false
	}
	it.syncFromSolver()
	it.nodes = append(it.nodes, SearchNode{constraint: c, term: term, lit: lit})
	return true
}

func (it *Iterator) popNode() {
	it.maint.BacktrackOneLevel()
	it.nodes = it.nodes[:len(it.nodes)-1]
}

func (it *Iterator) countBroken() int {
	n := 0
	for _, c := range it.maint.PossiblyInfeasibleConstraints() {
		if c != ObjectiveConstraint && !it.maint.ConstraintIsFeasible(c) {
			n++
		}
	}
	return n
}

func sortedLits(nodes []SearchNode, extra *core.Lit) [transpositionDepth]int32 {
	lits := make([]int32, 0, transpositionDepth)
	for _, n := range nodes {
		if len(lits) == transpositionDepth {
			break
		}
		lits = append(lits, int32(n.lit))
	}
	if extra != nil && len(lits) < transpositionDepth {
		lits = append(lits, int32(*extra))
	}
	sort.Slice(lits, func(i, j int) bool { return lits[i] < lits[j] })
	var key [transpositionDepth]int32
	copy(key[:], lits)
	return key
}

func (it *Iterator) keyBlocked(lit core.Lit) bool {
	if len(it.nodes)+1 > transpositionDepth {
		return false
	}
	return it.transposition[sortedLits(it.nodes, &lit)]
}

func (it *Iterator) insertTransposition() {
	if len(it.nodes) == 0 || len(it.nodes) > transpositionDepth {
		return
	}
	it.transposition[sortedLits(it.nodes, nil)] = true
}

// promote commits the current assignment as the new reference and resets
// the in-progress search.
func (it *Iterator) promote() {
	it.maint.UseCurrentStateAsReference()
	it.nodes = it.nodes[:0]
	it.initialTermIndex = make(map[core.ConstraintIndex]core.TermIndex)
	it.transposition = make(map[[transpositionDepth]int32]bool)
}

// backtrack pops the deepest pushed node, or declares the search
// exhausted once nothing is left to pop.
func (it *Iterator) backtrack() Result {
	if len(it.nodes) == 0 {
		return ResultExhausted
	}
	it.insertTransposition()
	it.popNode()
	return ResultContinue
}

// oneFlipProbe tries every precomputed one-flip repair candidate once the
// DFS has reached maxDepth without a feasible assignment, per spec.md
// §4.6 step 3.
func (it *Iterator) oneFlipProbe() Result {
	for _, lit := range it.maint.PotentialOneFlipRepairs() {
		if _, assigned := it.solver.Value(lit.Var()); assigned {
			continue
		}
		if !it.pushDecision(core.InvalidConstraint, core.InvalidTerm, lit) {
			continue
		}
		if it.maint.IsFeasible() {
			it.promote()
			return ResultImproved
		}
		it.popNode()
	}
	return it.backtrack()
}

// NextAssignment advances the search by one step, per spec.md §4.6:
//  1. if the search has no remaining branch, report ResultExhausted;
//  2. if the current assignment is already feasible, promote it;
//  3. at full depth, probe one-flip repairs before giving up on this
//     branch;
//  4. otherwise pick the narrowest broken constraint, find its next
//     repairing term circularly from where it last left off, and push
//     that flip (pruned by the transposition table when enabled).
func (it *Iterator) NextAssignment() Result {
	if it.rootUnsat {
		return ResultExhausted
	}
	if it.maint.IsFeasible() {
		it.promote()
		return ResultImproved
	}
	if len(it.nodes) >= it.maxDepth {
		if it.useOneFlip {
			return it.oneFlipProbe()
		}
		return it.backtrack()
	}
	if it.countBroken() > it.maxBrokenConstraints {
		return it.backtrack()
	}

	c, ok := it.repairer.ConstraintToRepair()
	if !ok {
		return it.backtrack()
	}

	n := core.TermIndex(it.repairer.NumTerms(c))
	if n == 0 {
		return it.backtrack()
	}
	init, seen := it.initialTermIndex[c]
	if !seen {
		init = 0
	}
	start := (init - 1 + n) % n
	term := it.repairer.NextRepairingTerm(c, init, start)
	if term == core.InvalidTerm {
		return it.backtrack()
	}
	it.initialTermIndex[c] = (term + 1) % n

	lit := it.repairer.GetFlip(c, term)
	if it.useTransposition && it.keyBlocked(lit) {
		return ResultContinue
	}
	it.pushDecision(c, term, lit)
	return ResultContinue
}

// IsUnsat reports whether the search has proved the current reference's
// search tree unsat at the root (no branch left to pop).
func (it *Iterator) IsUnsat() bool { return it.rootUnsat }

// ReferenceSolution reads the maintainer's current reference assignment
// back out as a core.Solution, valid immediately after a ResultImproved
// return from NextAssignment.
func (it *Iterator) ReferenceSolution() *core.Solution {
	values := make([]bool, it.problem.NumVariables)
	for v := range values {
		values[v] = it.maint.Value(core.VariableIndex(v))
	}
	return core.NewSolutionFromValues(it.problem, values)
}

// Synchronize discards the in-progress search and restarts it from a
// freshly found feasible solution, used when an outer optimizer (LNS,
// portfolio) hands the iterator a new incumbent.
func (it *Iterator) Synchronize(solution *core.Solution) {
	it.maint.SetReferenceSolution(solution)
	it.nodes = it.nodes[:0]
	it.initialTermIndex = make(map[core.ConstraintIndex]core.TermIndex)
	it.transposition = make(map[[transpositionDepth]int32]bool)
	it.rootUnsat = false
}

// SynchronizeSatWrapper backtracks the SAT wrapper to its root level,
// copies the root-level assignments into the maintainer, and re-applies
// the search path accumulated so far, used when the wrapper's state was
// rebuilt externally (e.g. after assumptions changed) between calls to
// NextAssignment. Invalid nodes (per Repairer.RepairIsValid) and
// everything after them are dropped.
func (it *Iterator) SynchronizeSatWrapper() {
	saved := it.nodes
	it.solver.Backtrack(0)
	it.maint.BacktrackAll()
	it.nodes = it.nodes[:0]
	it.syncFromSolver()

	for _, node := range saved {
		if node.constraint != core.InvalidConstraint && !it.repairer.RepairIsValid(node.constraint, node.term) {
			break
		}
		if !it.pushDecision(node.constraint, node.term, node.lit) {
			break
		}
	}
}

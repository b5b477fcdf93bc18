package localsearch

import (
	"context"
	"math/rand"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/sat"
	"github.com/latticeforge/bop/state"
)

// defaultExploredAssignmentsPerTry bounds how many NextAssignment steps
// one Optimize call takes before yielding back to the portfolio, mirror
// of bop_ls.cc's max_number_of_explored_assignments_per_try_in_ls (not
// itself one of bopparams.Parameters' tunables).
const defaultExploredAssignmentsPerTry = 1000

// Optimizer is LocalSearchOptimizer (ungrounded spec.md module name, but
// present throughout bop_ls.{h,cc}): it drives an Iterator against a
// persistent SAT wrapper, resynchronizing the maintainer and the wrapper
// whenever ProblemState.UpdateStamp advances, and reports any improved
// assignment the DFS finds.
type Optimizer struct {
	rng *rand.Rand

	solver   *sat.Solver
	maint    *Maintainer
	repairer *Repairer
	iterator *Iterator

	initialized       bool
	updateStamp       uint64
	postedFixed       []bool
	postedClauseCount int
}

// New builds an uninitialized local search optimizer; the first
// Optimize call wires the maintainer/repairer/iterator from the
// problem's current state.
func New(rng *rand.Rand) *Optimizer { return &Optimizer{rng: rng} }

func (o *Optimizer) Name() string { return "LocalSearchOptimizer" }

// ShouldBeRun requires a feasible incumbent to repair-search around, per
// bop_ls.cc's ShouldBeRun.
func (o *Optimizer) ShouldBeRun(ps *state.ProblemState) bool {
	return ps.Solution().IsFeasible() && !ps.IsOptimal() && !ps.IsInfeasible()
}

func (o *Optimizer) ensureInitialized(ps *state.ProblemState, params *bopparams.Parameters) error {
	if o.initialized {
		return nil
	}
	problem := ps.Problem()
	o.solver = sat.NewSolver(problem.NumVariables)
	if err := ps.LoadIntoSolver(o.solver, false); err != nil {
		return err
	}
	o.maint = NewMaintainer(problem, o.rng)
	o.maint.SetReferenceSolution(ps.Solution())
	o.repairer = NewRepairer(problem, o.maint, o.solver)
	o.iterator = NewIterator(problem, o.maint, o.repairer, o.solver, params)
	o.iterator.Synchronize(ps.Solution())

	o.postedFixed = make([]bool, problem.NumVariables)
	o.postedClauseCount = 0
	o.initialized = true
	o.updateStamp = ps.UpdateStamp() - 1 // force the first sync below
	return nil
}

// syncState replays fixed variables and learned binary clauses posted to
// ProblemState since the last call, the same incremental watermark
// pattern coreguided/firstsolution use for their own persistent
// solvers.
func (o *Optimizer) syncState(ps *state.ProblemState) error {
	problem := ps.Problem()
	for v := core.VariableIndex(0); int(v) < problem.NumVariables; v++ {
		if !ps.IsFixed(v) || o.postedFixed[v] {
			continue
		}
		if err := o.solver.AddUnitClause(core.NewLit(v, ps.FixedValue(v))); err != nil {
			return err
		}
		o.postedFixed[v] = true
	}
	all := ps.BinaryClauses().All()
	for _, pair := range all[o.postedClauseCount:] {
		if err := o.solver.AddBinaryClause(pair[0], pair[1]); err != nil {
			return err
		}
	}
	o.postedClauseCount = len(all)
	return nil
}

// Optimize runs one bounded DFS slice over the iterator, per bop_ls.cc's
// Optimize: resynchronize if the state moved on, then step NextAssignment
// until an improvement, exhaustion, the explored-assignments budget, or
// ctx's deadline.
func (o *Optimizer) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	if err := o.ensureInitialized(ps, params); err != nil {
		return core.StatusAbort
	}
	if err := o.syncState(ps); err != nil {
		return core.StatusAbort
	}

	if o.updateStamp != ps.UpdateStamp() {
		o.updateStamp = ps.UpdateStamp()
		o.maint.SetReferenceSolution(ps.Solution())
		o.iterator.Synchronize(ps.Solution())
	}
	o.iterator.SynchronizeSatWrapper()

	toExplore := defaultExploredAssignmentsPerTry
	if budget.MaxConflicts > 0 {
		toExplore = budget.MaxConflicts
	}

	for toExplore > 0 {
		select {
		case <-ctx.Done():
			return core.StatusLimitReached
		default:
		}
		result := o.iterator.NextAssignment()
		switch result {
		case ResultImproved:
			info.Solution = o.iterator.ReferenceSolution()
			return core.StatusSolutionFound
		case ResultExhausted:
			if o.iterator.IsUnsat() {
				if ps.Solution().IsFeasible() {
					return core.StatusOptimalSolutionFound
				}
				return core.StatusInfeasible
			}
			return core.StatusAbort
		}
		toExplore--
	}
	return core.StatusContinue
}

package firstsolution

import (
	"context"
	"math/rand"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/sat"
	"github.com/latticeforge/bop/state"
)

// Random is the randomized-restart first-solution generator of spec.md
// §4.10: it repeatedly randomizes the SAT decision heuristic, optionally
// over-constrains the objective below the current best, and attempts a
// short solve, keeping any improvement it finds.
type Random struct {
	rng *rand.Rand

	solver            *sat.Solver
	initialized       bool
	postedFixed       []bool
	postedClauseCount int
}

// NewRandom builds a generator driven by rng.
func NewRandom(rng *rand.Rand) *Random { return &Random{rng: rng} }

func (r *Random) Name() string { return "RandomFirstSolutionGenerator" }

func (r *Random) ShouldBeRun(ps *state.ProblemState) bool {
	return !ps.IsOptimal() && !ps.IsInfeasible()
}

func (r *Random) ensureInitialized(ps *state.ProblemState) error {
	if r.initialized {
		return nil
	}
	problem := ps.Problem()
	r.solver = sat.NewSolver(problem.NumVariables)
	if err := ps.LoadIntoSolver(r.solver, false); err != nil {
		return err
	}
	r.postedFixed = make([]bool, problem.NumVariables)
	for v := 0; v < problem.NumVariables; v++ {
		if ps.IsFixed(core.VariableIndex(v)) {
			r.postedFixed[v] = true
		}
	}
	r.postedClauseCount = ps.BinaryClauses().Len()
	r.initialized = true
	return nil
}

func (r *Random) syncState(ps *state.ProblemState) error {
	problem := ps.Problem()
	for v := 0; v < problem.NumVariables; v++ {
		vi := core.VariableIndex(v)
		if r.postedFixed[v] || !ps.IsFixed(vi) {
			continue
		}
		if err := r.solver.AddUnitClause(core.NewLit(vi, ps.FixedValue(vi))); err != nil {
			return err
		}
		r.postedFixed[v] = true
	}
	all := ps.BinaryClauses().All()
	for _, pair := range all[r.postedClauseCount:] {
		if err := r.solver.AddBinaryClause(pair[0], pair[1]); err != nil {
			return err
		}
	}
	r.postedClauseCount = len(all)
	return nil
}

// randomizeDecisionHeuristic applies spec.md §4.10's randomization rule:
// a uniformly chosen preferred order and polarity strategy, phase saving
// with probability 1/2, and the random polarity ratio and the random
// branches ratio each set, independently, to 0.01 with probability 1/2
// or to zero otherwise.
func randomizeDecisionHeuristic(s *sat.Solver, rng *rand.Rand) {
	orders := []int{sat.OrderActivity, sat.OrderAscending, sat.OrderDescending}
	polarities := []int{sat.PolarityPhaseSaved, sat.PolarityTrue, sat.PolarityFalse}

	s.SetPreferredVariableOrder(orders[rng.Intn(len(orders))])
	s.SetPolarityStrategy(polarities[rng.Intn(len(polarities))])
	s.SetPhaseSaving(rng.Intn(2) == 0)

	if rng.Intn(2) == 0 {
		s.SetRandomPolarityRatio(0.01)
	} else {
		s.SetRandomPolarityRatio(0)
	}
	if rng.Intn(2) == 0 {
		s.SetRandomBranchesRatio(0.01)
	} else {
		s.SetRandomBranchesRatio(0)
	}
}

// objectiveBound adds a strict "objective < bound" linear constraint,
// used to force each restart attempt to either find an improvement or
// fail fast.
func objectiveBound(solver core.SatSolver, obj core.Objective, bound int64) error {
	ub := bound - 1
	return solver.AddLinearConstraint(
		litsFromVars(obj.Literals),
		obj.Coefficients,
		nil,
		&ub,
	)
}

func litsFromVars(vars []core.VariableIndex) []core.Lit {
	lits := make([]core.Lit, len(vars))
	for i, v := range vars {
		lits[i] = core.NewLit(v, true)
	}
	return lits
}

// Optimize runs a bounded number of randomized-restart attempts, each
// under a ten-conflict quick-check budget (spec.md §4.10), restoring the
// solver's decision-heuristic parameters once done.
//
// The interface this generator's solver is built against does not expose
// a per-call conflict-count delta, so the "maximum conflict budget"
// spec.md describes is approximated here as a fixed attempt count
// (MaxNumberOfConflictsInRandomSolutionGen scaled down by the per-attempt
// quick-check budget) rather than a running total of actual conflicts.
func (r *Random) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	if err := r.ensureInitialized(ps); err != nil {
		return core.StatusLimitReached
	}
	if err := r.syncState(ps); err != nil {
		return core.StatusLimitReached
	}

	quickCheck := params.MaxNumberOfConflictsForQuickCheck
	if quickCheck <= 0 {
		quickCheck = 10
	}
	attempts := params.MaxNumberOfConflictsInRandomSolutionGen / quickCheck
	if attempts <= 0 {
		attempts = 1
	}

	saved := r.solver.SaveParameters()
	defer r.solver.RestoreParameters(saved)

	result := core.StatusLimitReached
	for i := 0; i < attempts; i++ {
		r.solver.Backtrack(0)
		randomizeDecisionHeuristic(r.solver, r.rng)

		if ps.Solution().IsFeasible() {
			if err := objectiveBound(r.solver, ps.Problem().Objective, ps.Solution().Cost()); err != nil {
				return result
			}
		}

		switch r.solver.Solve(ctx, nil, core.Budget{MaxConflicts: quickCheck}) {
		case core.StatusSolutionFound:
			values := make([]bool, ps.Problem().NumVariables)
			for v := range values {
				val, _ := r.solver.Value(core.VariableIndex(v))
				values[v] = val
			}
			info.Solution = core.NewSolutionFromValues(ps.Problem(), values)
			result = core.StatusSolutionFound

		case core.StatusInfeasible:
			if ps.Solution().IsFeasible() {
				info.ReportsOptimal = true
				return core.StatusOptimalSolutionFound
			}
			info.ReportsInfeasible = true
			return core.StatusInfeasible
		}
	}
	return result
}

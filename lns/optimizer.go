package lns

import (
	"context"
	"math/rand"

	"github.com/latticeforge/bop/adaptive"
	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/sat"
	"github.com/latticeforge/bop/state"
)

func canRun(ps *state.ProblemState) bool {
	return ps.Solution().IsFeasible() && !ps.IsOptimal() && !ps.IsInfeasible()
}

func reportCurrentAssignment(problem *core.Problem, solver core.SatSolver, info *state.LearnedInfo) {
	values := make([]bool, problem.NumVariables)
	for v := range values {
		val, _ := solver.Value(core.VariableIndex(v))
		values[v] = val
	}
	info.Solution = core.NewSolutionFromValues(problem, values)
}

// freshPropagator builds a new SAT wrapper seeded with the state's
// current constraints, fixed variables, learned binary clauses, and a
// strict "cost < best" bound — a fresh instance every call rather than a
// long-lived one reset to level 0, since LoadIntoSolver rebuilds
// equivalent state cheaply and keeps both optimizers below stateless
// between Optimize calls.
func freshPropagator(ps *state.ProblemState) (*sat.Solver, error) {
	solver := sat.NewSolver(ps.Problem().NumVariables)
	if err := ps.LoadIntoSolver(solver, true); err != nil {
		return nil, err
	}
	return solver, nil
}

// Adaptive is BopAdaptiveLNSOptimizer (spec.md §4.7): each call steps a
// Luby sequence to read off a neighborhood difficulty, generates a
// neighborhood with a randomly chosen generator, probes it briefly, and
// if still open solves it fully under a Luby-scaled conflict budget.
type Adaptive struct {
	generators []Generator
	luby       *adaptive.LubyAdaptiveParameter
	rng        *rand.Rand
}

// NewAdaptive builds the three stock generators and a Luby-paced
// difficulty driver seeded to start with small, cautious neighborhoods.
func NewAdaptive(rng *rand.Rand) *Adaptive {
	return &Adaptive{
		generators: []Generator{ObjectiveBased{}, ConstraintBased{}, RelationGraph{}},
		luby: adaptive.NewLubyAdaptiveParameter(func() *adaptive.Parameter {
			return adaptive.NewParameter(0.3, 0.15, 0.6, 0.01)
		}),
		rng: rng,
	}
}

func (a *Adaptive) Name() string { return "BopAdaptiveLNSOptimizer" }

func (a *Adaptive) ShouldBeRun(ps *state.ProblemState) bool { return canRun(ps) }

func (a *Adaptive) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	if !canRun(ps) {
		return core.StatusLimitReached
	}

	diffParam, lubyValue := a.luby.Step()
	difficulty := diffParam.Value()
	gen := a.generators[a.rng.Intn(len(a.generators))]

	solver, err := freshPropagator(ps)
	if err != nil {
		return core.StatusLimitReached
	}

	if !gen.Generate(ps.Problem(), ps.Solution(), solver, difficulty, a.rng) {
		diffParam.Decrease()
		return core.StatusLimitReached
	}

	switch solver.Solve(ctx, nil, core.Budget{MaxConflicts: 10}) {
	case core.StatusSolutionFound:
		reportCurrentAssignment(ps.Problem(), solver, info)
		diffParam.Increase()
		return core.StatusSolutionFound
	case core.StatusInfeasible, core.StatusAbort:
		diffParam.Increase()
		return core.StatusLimitReached
	}

	fullBudget := core.Budget{MaxConflicts: params.MaxNumberOfConflictsInRandomLns * lubyValue}
	switch solver.Solve(ctx, nil, fullBudget) {
	case core.StatusSolutionFound:
		reportCurrentAssignment(ps.Problem(), solver, info)
		diffParam.Increase()
		return core.StatusSolutionFound
	case core.StatusInfeasible, core.StatusAbort:
		diffParam.Increase()
		return core.StatusLimitReached
	default:
		stats := solver.Statistics()
		budgetConflicts := fullBudget.MaxConflicts
		if budgetConflicts <= 0 {
			budgetConflicts = 1
		}
		ratio := float64(stats.Conflicts) / float64(budgetConflicts)
		switch {
		case ratio < 0.5:
			diffParam.Increase()
		case ratio > 0.95:
			diffParam.Decrease()
		}
		return core.StatusLimitReached
	}
}

// Complete is BopCompleteLNSOptimizer (spec.md §4.7): instead of a
// neighborhood generator, it bounds the Hamming distance from the
// current reference solution directly as a linear constraint and runs
// one monolithic SAT call.
type Complete struct{}

// NewComplete builds a Complete optimizer; it holds no mutable state of
// its own (unlike Adaptive, which paces itself via Luby/adaptive
// parameters), so one instance can be reused freely.
func NewComplete() *Complete { return &Complete{} }

func (c *Complete) Name() string { return "BopCompleteLNSOptimizer" }

func (c *Complete) ShouldBeRun(ps *state.ProblemState) bool { return canRun(ps) }

func hammingConstraint(solver core.SatSolver, ref *core.Solution, maxDistance int) error {
	n := ref.Len()
	lits := make([]core.Lit, n)
	coeffs := make([]int64, n)
	for v := 0; v < n; v++ {
		vi := core.VariableIndex(v)
		lits[v] = core.NewLit(vi, !ref.Value(vi))
		coeffs[v] = 1
	}
	ub := int64(maxDistance)
	return solver.AddLinearConstraint(lits, coeffs, nil, &ub)
}

func (c *Complete) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	if !canRun(ps) {
		return core.StatusLimitReached
	}
	solver, err := freshPropagator(ps)
	if err != nil {
		return core.StatusLimitReached
	}
	if err := hammingConstraint(solver, ps.Solution(), params.NumRelaxedVars); err != nil {
		return core.StatusLimitReached
	}

	completeBudget := core.Budget{MaxConflicts: params.MaxNumberOfConflictsInRandomLns}
	switch solver.Solve(ctx, nil, completeBudget) {
	case core.StatusSolutionFound:
		reportCurrentAssignment(ps.Problem(), solver, info)
		return core.StatusSolutionFound
	default:
		return core.StatusLimitReached
	}
}

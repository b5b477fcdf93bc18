package linrelax_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/linrelax"
	"github.com/latticeforge/bop/state"
)

func atLeastOneProblem(n int) *core.Problem {
	lits := make([]core.Lit, n)
	coeffs := make([]int64, n)
	objLits := make([]core.VariableIndex, n)
	objCoeffs := make([]int64, n)
	for i := 0; i < n; i++ {
		lits[i] = core.NewLit(core.VariableIndex(i), true)
		coeffs[i] = 1
		objLits[i] = core.VariableIndex(i)
		objCoeffs[i] = 1
	}
	one := int64(1)
	return &core.Problem{
		NumVariables: n,
		Constraints: []core.Constraint{{
			Literals:     lits,
			Coefficients: coeffs,
			LowerBound:   &one,
		}},
		Objective: core.Objective{Literals: objLits, Coefficients: objCoeffs},
	}
}

func TestOptimizeReportsAnIntegralRelaxationAsASolution(t *testing.T) {
	p := atLeastOneProblem(3)
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	o := linrelax.New()
	require.True(t, o.ShouldBeRun(ps))

	info := ps.GetLearnedInfo()
	status := o.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusSolutionFound, status)
	require.NotNil(t, info.Solution)
	require.True(t, info.Solution.IsFeasible())
}

func TestOptimizeDetectsInfeasibilityInTheBoxRelaxation(t *testing.T) {
	two := int64(2)
	p := &core.Problem{
		NumVariables: 1,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(0, true)},
			Coefficients: []int64{1},
			LowerBound:   &two, // unreachable even at x0=1, given the implicit 0<=x0<=1 bound
		}},
		Objective: core.Objective{Literals: []core.VariableIndex{0}, Coefficients: []int64{1}},
	}
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	o := linrelax.New()

	info := ps.GetLearnedInfo()
	status := o.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusInfeasible, status)
	require.True(t, info.ReportsInfeasible)
}

func TestOptimizeReportsAFractionalLowerBound(t *testing.T) {
	one := int64(1)
	p := &core.Problem{
		NumVariables: 2,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(0, true), core.NewLit(1, true)},
			Coefficients: []int64{2, 2},
			LowerBound:   &one,
		}},
		Objective: core.Objective{Literals: []core.VariableIndex{0, 1}, Coefficients: []int64{1, 1}},
	}
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	o := linrelax.New()

	info := ps.GetLearnedInfo()
	status := o.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusLimitReached, status)
	require.Len(t, info.LPValues, 2)
	require.Equal(t, int64(1), info.LowerBound)
}

func TestShouldBeRunStopsOnceInfeasible(t *testing.T) {
	two := int64(2)
	p := &core.Problem{
		NumVariables: 1,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(0, true)},
			Coefficients: []int64{1},
			LowerBound:   &two,
		}},
		Objective: core.Objective{Literals: []core.VariableIndex{0}, Coefficients: []int64{1}},
	}
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	o := linrelax.New()

	info := ps.GetLearnedInfo()
	status := o.Optimize(context.Background(), params, ps, info, core.Budget{})
	ps.MergeLearnedInfo(info, status)
	require.True(t, ps.IsInfeasible())
	require.False(t, o.ShouldBeRun(ps))
}

// scriptedSolver answers the base relaxation call with a fixed fractional
// response and every subsequent strong-branching pin call (recognizable
// by its appended equality row pinning a single variable) from a
// var/bound-keyed script.
type scriptedSolver struct {
	baseObjective float64
	basePrimal    []float64
	pins          map[[2]float64]core.LPStatus
}

func (s *scriptedSolver) Solve(c []float64, rows []core.LPRow, numVars int) (float64, []float64, core.LPStatus, error) {
	last := rows[len(rows)-1]
	if last.LowerBound != nil && last.UpperBound != nil && *last.LowerBound == *last.UpperBound && len(last.VarIndices) == 1 {
		key := [2]float64{float64(last.VarIndices[0]), *last.LowerBound}
		return 0, nil, s.pins[key], nil
	}
	return s.baseObjective, s.basePrimal, core.LPOptimal, nil
}

func TestStrongBranchingFixesAVariableProvenInfeasibleAtZero(t *testing.T) {
	one := int64(1)
	p := &core.Problem{
		NumVariables: 2,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(0, true), core.NewLit(1, true)},
			Coefficients: []int64{1, 1},
			LowerBound:   &one,
		}},
		Objective: core.Objective{Literals: []core.VariableIndex{0, 1}, Coefficients: []int64{1, 1}},
	}
	params := bopparams.DefaultParameters()
	params.UseLPStrongBranching = true
	ps := state.NewProblemState(p, params, nil)

	solver := &scriptedSolver{
		baseObjective: 0.5,
		basePrimal:    []float64{0.5, 0.5},
		pins: map[[2]float64]core.LPStatus{
			{0, 0}: core.LPInfeasible,
			{0, 1}: core.LPOptimal,
			{1, 0}: core.LPOptimal,
			{1, 1}: core.LPOptimal,
		},
	}
	o := linrelax.NewWithSolver(solver)

	info := ps.GetLearnedInfo()
	status := o.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusLimitReached, status)
	require.Contains(t, info.FixedLiterals, core.NewLit(0, true))
}

func TestName(t *testing.T) {
	require.Equal(t, "LinearRelaxation", linrelax.New().Name())
}

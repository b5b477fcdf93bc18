package coreguided_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/coreguided"
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

// unsatTwoVarProblem is the classic four-clause contradiction over two
// variables: every combination of (x0, x1) violates one of the OR
// constraints, so the problem is unsatisfiable regardless of the
// objective's assumptions.
func unsatTwoVarProblem() *core.Problem {
	one := int64(1)
	clause := func(a, b core.Lit) core.Constraint {
		return core.Constraint{Literals: []core.Lit{a, b}, Coefficients: []int64{1, 1}, LowerBound: &one}
	}
	x0t, x0f := core.NewLit(0, true), core.NewLit(0, false)
	x1t, x1f := core.NewLit(1, true), core.NewLit(1, false)
	return &core.Problem{
		NumVariables: 2,
		Constraints: []core.Constraint{
			clause(x0t, x1t),
			clause(x0f, x1t),
			clause(x0t, x1f),
			clause(x0f, x1f),
		},
		Objective: core.Objective{Literals: []core.VariableIndex{0}, Coefficients: []int64{1}},
	}
}

func runToFixpoint(t *testing.T, ps *state.ProblemState, o *coreguided.Optimizer, params *bopparams.Parameters, maxIterations int) core.Status {
	t.Helper()
	status := core.StatusLimitReached
	for i := 0; i < maxIterations; i++ {
		if !o.ShouldBeRun(ps) {
			break
		}
		info := ps.GetLearnedInfo()
		status = o.Optimize(context.Background(), params, ps, info, core.Budget{MaxConflicts: 1000})
		ps.MergeLearnedInfo(info, status)
		ps.SynchronizationDone()
		if status == core.StatusOptimalSolutionFound || status == core.StatusInfeasible {
			break
		}
	}
	return status
}

func TestOptimizeConvergesToTheKnownOptimum(t *testing.T) {
	p := atLeastOneProblem(3)
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	o := coreguided.New()
	require.True(t, o.ShouldBeRun(ps))

	status := runToFixpoint(t, ps, o, params, 20)
	require.Equal(t, core.StatusOptimalSolutionFound, status)
	require.True(t, ps.IsOptimal())
	require.True(t, ps.Solution().IsFeasible())
	require.Equal(t, int64(1), ps.Solution().Cost())
}

func TestOptimizeDetectsGlobalInfeasibility(t *testing.T) {
	p := unsatTwoVarProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	o := coreguided.New()
	require.True(t, o.ShouldBeRun(ps))

	status := runToFixpoint(t, ps, o, params, 20)
	require.Equal(t, core.StatusInfeasible, status)
	require.True(t, ps.IsInfeasible())
}

func TestNameIdentifiesTheOptimizer(t *testing.T) {
	require.Equal(t, "SatCoreBasedOptimizer", coreguided.New().Name())
}

func TestShouldBeRunStopsOnceOptimal(t *testing.T) {
	p := atLeastOneProblem(2)
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	o := coreguided.New()

	runToFixpoint(t, ps, o, params, 20)
	require.True(t, ps.IsOptimal())
	require.False(t, o.ShouldBeRun(ps))
}

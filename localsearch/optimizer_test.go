package localsearch_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/localsearch"
	"github.com/latticeforge/bop/state"
)

// exactlyOneOfThreeProblem has a strictly better feasible assignment
// (cost 1, one variable true) than the suboptimal incumbent the test
// seeds (cost 2, two variables true), so a local search pass has
// something to find.
func exactlyOneOfThreeProblem() *core.Problem {
	lb, ub := int64(1), int64(2)
	return &core.Problem{
		NumVariables: 3,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(0, true), core.NewLit(1, true), core.NewLit(2, true)},
			Coefficients: []int64{1, 1, 1},
			LowerBound:   &lb,
			UpperBound:   &ub,
		}},
		Objective: core.Objective{
			Literals:     []core.VariableIndex{0, 1, 2},
			Coefficients: []int64{1, 1, 1},
		},
	}
}

func TestShouldBeRunRequiresAFeasibleIncumbent(t *testing.T) {
	p := exactlyOneOfThreeProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	opt := localsearch.New(rand.New(rand.NewSource(1)))

	// NewProblemState's lucky all-false assignment violates the lower
	// bound, so no feasible incumbent is on record yet.
	require.False(t, opt.ShouldBeRun(ps))
}

func TestOptimizeFindsAStrictlyBetterFeasibleAssignment(t *testing.T) {
	p := exactlyOneOfThreeProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)

	seed := core.NewSolution(p)
	seed.SetValue(0, true)
	seed.SetValue(1, true)
	info := state.NewLearnedInfo()
	info.Solution = seed
	ps.MergeLearnedInfo(info, core.StatusContinue)
	require.Equal(t, int64(2), ps.Solution().Cost())

	opt := localsearch.New(rand.New(rand.NewSource(7)))
	require.Equal(t, "LocalSearchOptimizer", opt.Name())
	require.True(t, opt.ShouldBeRun(ps))

	found := false
	for i := 0; i < 10 && !found; i++ {
		out := ps.GetLearnedInfo()
		status := opt.Optimize(context.Background(), params, ps, out, core.Budget{})
		ps.MergeLearnedInfo(out, status)
		if status == core.StatusSolutionFound {
			found = true
		} else if status == core.StatusAbort {
			break
		}
	}
	require.True(t, found)
	require.Equal(t, int64(1), ps.Solution().Cost())
}

func TestOptimizeResynchronizesWhenTheIncumbentImprovesExternally(t *testing.T) {
	p := exactlyOneOfThreeProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)

	seed := core.NewSolution(p)
	seed.SetValue(0, true)
	seed.SetValue(1, true)
	info := state.NewLearnedInfo()
	info.Solution = seed
	ps.MergeLearnedInfo(info, core.StatusContinue)

	opt := localsearch.New(rand.New(rand.NewSource(11)))
	out := ps.GetLearnedInfo()
	opt.Optimize(context.Background(), params, ps, out, core.Budget{})

	better := core.NewSolution(p)
	better.SetValue(0, true)
	externalInfo := state.NewLearnedInfo()
	externalInfo.Solution = better
	ps.MergeLearnedInfo(externalInfo, core.StatusContinue)
	require.Equal(t, int64(1), ps.Solution().Cost())

	out2 := ps.GetLearnedInfo()
	status := opt.Optimize(context.Background(), params, ps, out2, core.Budget{})
	require.NotEqual(t, core.StatusInfeasible, status)
}

package lns_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/lns"
	"github.com/latticeforge/bop/state"
)

func newState(t *testing.T, p *core.Problem, feasible *core.Solution) *state.ProblemState {
	t.Helper()
	ps := state.NewProblemState(p, bopparams.DefaultParameters(), nil)
	info := ps.GetLearnedInfo()
	info.Solution = feasible
	ps.MergeLearnedInfo(info, core.StatusSolutionFound)
	return ps
}

func TestAdaptiveShouldBeRunRequiresAFeasibleIncumbent(t *testing.T) {
	p, _ := packingProblem(6)
	ps := state.NewProblemState(p, bopparams.DefaultParameters(), nil)
	a := lns.NewAdaptive(rand.New(rand.NewSource(1)))
	require.False(t, a.ShouldBeRun(ps))
}

func TestCompleteOptimizeNeverWorsensBestCost(t *testing.T) {
	p, sol := packingProblem(6)
	// sol is all-false, cost 0, already optimal for a minimizing sum — use
	// it only to exercise the call path, not to expect an improvement.
	ps := newState(t, p, sol)
	c := lns.NewComplete()
	require.True(t, c.ShouldBeRun(ps))

	info := ps.GetLearnedInfo()
	status := c.Optimize(context.Background(), bopparams.DefaultParameters(), ps, info, core.Budget{MaxConflicts: 50})
	require.Contains(t, []core.Status{core.StatusSolutionFound, core.StatusLimitReached}, status)
	if info.Solution != nil {
		require.LessOrEqual(t, info.Solution.Cost(), sol.Cost())
	}
}

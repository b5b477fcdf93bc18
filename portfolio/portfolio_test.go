package portfolio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/portfolio"
	"github.com/latticeforge/bop/state"
)

// scriptedOptimizer is a fixed-response stand-in for a concrete optimizer,
// used to exercise PortfolioOptimizer's gain bookkeeping and status
// propagation deterministically.
type scriptedOptimizer struct {
	name   string
	status core.Status
	values []bool
}

func (s *scriptedOptimizer) Name() string                               { return s.name }
func (s *scriptedOptimizer) ShouldBeRun(ps *state.ProblemState) bool     { return true }
func (s *scriptedOptimizer) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	if s.values != nil {
		info.Solution = core.NewSolutionFromValues(ps.Problem(), s.values)
	}
	return s.status
}

// trivialProblem requires x1 to be true, so the all-false starting
// assignment is infeasible and the first solution an optimizer reports
// is new.
func trivialProblem() *core.Problem {
	one := int64(1)
	return &core.Problem{
		NumVariables: 2,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(1, true)},
			Coefficients: []int64{1},
			LowerBound:   &one,
		}},
		Objective: core.Objective{Literals: []core.VariableIndex{0, 1}, Coefficients: []int64{5, 1}},
	}
}

func TestPortfolioOptimizeFeedsGainIntoSelectorScore(t *testing.T) {
	p := trivialProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)

	a := &scriptedOptimizer{name: "A", status: core.StatusSolutionFound, values: []bool{true, true}}  // cost 6
	b := &scriptedOptimizer{name: "B", status: core.StatusSolutionFound, values: []bool{false, true}} // cost 1
	port := portfolio.New([]state.Optimizer{a, b})
	require.Equal(t, "PortfolioOptimizer", port.Name())
	require.True(t, port.ShouldBeRun(ps))

	info := ps.GetLearnedInfo()
	status := port.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusContinue, status)
	ps.MergeLearnedInfo(info, status)
	require.Equal(t, int64(6), ps.Solution().Cost())

	// A runs again and finds nothing better: gain 0, cost stays 6.
	info = ps.GetLearnedInfo()
	status = port.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusContinue, status)
	ps.MergeLearnedInfo(info, status)
	require.Equal(t, int64(6), ps.Solution().Cost())

	// B runs next and lowers the cost from 6 to 1, a gain of 5.
	info = ps.GetLearnedInfo()
	status = port.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusContinue, status)
	ps.MergeLearnedInfo(info, status)
	require.Equal(t, int64(1), ps.Solution().Cost())

	byName := map[string]portfolio.RunInfo{}
	for _, r := range port.Stats() {
		byName[r.Name] = r
	}
	require.Equal(t, int64(1), byName["A"].TotalGain)
	require.Equal(t, int64(5), byName["B"].TotalGain)
}

func TestPortfolioOptimizePropagatesInfeasible(t *testing.T) {
	p := trivialProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)

	a := &scriptedOptimizer{name: "A", status: core.StatusInfeasible}
	port := portfolio.New([]state.Optimizer{a})

	info := ps.GetLearnedInfo()
	status := port.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusInfeasible, status)
}

func TestPortfolioOptimizeReturnsAbortWhenNothingIsRunnable(t *testing.T) {
	p := trivialProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)

	port := portfolio.New(nil)
	info := ps.GetLearnedInfo()
	status := port.Optimize(context.Background(), params, ps, info, core.Budget{})
	require.Equal(t, core.StatusAbort, status)
}

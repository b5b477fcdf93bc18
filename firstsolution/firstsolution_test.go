package firstsolution_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/firstsolution"
	"github.com/latticeforge/bop/state"
)

// atLeastOneProblem mirrors package coreguided's fixture: n variables, one
// "at least one true" constraint, all-coefficient-1 objective, known
// optimum cost 1.
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

func TestGuidedNotGuidedFindsAFeasibleSolution(t *testing.T) {
	p := atLeastOneProblem(3)
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	g := firstsolution.NewGuided(bopparams.NotGuided)
	require.True(t, g.ShouldBeRun(ps))

	info := ps.GetLearnedInfo()
	status := g.Optimize(context.Background(), params, ps, info, core.Budget{MaxConflicts: 1000})
	require.Contains(t, []core.Status{core.StatusSolutionFound, core.StatusOptimalSolutionFound}, status)
	ps.MergeLearnedInfo(info, status)
	require.True(t, ps.Solution().IsFeasible())
}

func TestGuidedLPGuidedRequiresLPValues(t *testing.T) {
	p := atLeastOneProblem(3)
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	g := firstsolution.NewGuided(bopparams.LPGuided)
	require.False(t, g.ShouldBeRun(ps))
}

func TestGuidedUserGuidedRequiresAMatchingPreference(t *testing.T) {
	p := atLeastOneProblem(3)
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	g := firstsolution.NewGuided(bopparams.UserGuided)
	require.False(t, g.ShouldBeRun(ps))

	g.SetUserPreference([]int8{1, 1, 1})
	require.True(t, g.ShouldBeRun(ps))

	info := ps.GetLearnedInfo()
	status := g.Optimize(context.Background(), params, ps, info, core.Budget{MaxConflicts: 1000})
	require.Contains(t, []core.Status{core.StatusSolutionFound, core.StatusOptimalSolutionFound}, status)
}

func TestGuidedObjectiveGuidedDetectsGlobalInfeasibility(t *testing.T) {
	p := unsatTwoVarProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	g := firstsolution.NewGuided(bopparams.ObjectiveGuided)

	status := core.StatusLimitReached
	for i := 0; i < 20 && g.ShouldBeRun(ps); i++ {
		info := ps.GetLearnedInfo()
		status = g.Optimize(context.Background(), params, ps, info, core.Budget{MaxConflicts: 1000})
		ps.MergeLearnedInfo(info, status)
		ps.SynchronizationDone()
		if status == core.StatusInfeasible {
			break
		}
	}
	require.Equal(t, core.StatusInfeasible, status)
	require.True(t, ps.IsInfeasible())
}

func TestGuidedNameVariesByPolicy(t *testing.T) {
	require.Equal(t, "NotGuidedFirstSolution", firstsolution.NewGuided(bopparams.NotGuided).Name())
	require.Equal(t, "LPGuidedFirstSolution", firstsolution.NewGuided(bopparams.LPGuided).Name())
	require.Equal(t, "ObjectiveGuidedFirstSolution", firstsolution.NewGuided(bopparams.ObjectiveGuided).Name())
	require.Equal(t, "UserGuidedFirstSolution", firstsolution.NewGuided(bopparams.UserGuided).Name())
}

func TestRandomFindsAFeasibleSolution(t *testing.T) {
	p := atLeastOneProblem(3)
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	r := firstsolution.NewRandom(rand.New(rand.NewSource(1)))
	require.True(t, r.ShouldBeRun(ps))

	info := ps.GetLearnedInfo()
	status := r.Optimize(context.Background(), params, ps, info, core.Budget{MaxConflicts: 1000})
	require.Contains(t, []core.Status{core.StatusSolutionFound, core.StatusOptimalSolutionFound}, status)
	ps.MergeLearnedInfo(info, status)
	require.True(t, ps.Solution().IsFeasible())
}

func TestRandomDetectsGlobalInfeasibility(t *testing.T) {
	p := unsatTwoVarProblem()
	params := bopparams.DefaultParameters()
	ps := state.NewProblemState(p, params, nil)
	r := firstsolution.NewRandom(rand.New(rand.NewSource(2)))

	status := core.StatusLimitReached
	for i := 0; i < 20 && r.ShouldBeRun(ps); i++ {
		info := ps.GetLearnedInfo()
		status = r.Optimize(context.Background(), params, ps, info, core.Budget{MaxConflicts: 1000})
		ps.MergeLearnedInfo(info, status)
		ps.SynchronizationDone()
		if status == core.StatusInfeasible {
			break
		}
	}
	require.Equal(t, core.StatusInfeasible, status)
	require.True(t, ps.IsInfeasible())
}

func TestRandomName(t *testing.T) {
	require.Equal(t, "RandomFirstSolutionGenerator", firstsolution.NewRandom(rand.New(rand.NewSource(3))).Name())
}

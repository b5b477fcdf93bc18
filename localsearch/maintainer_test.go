package localsearch_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/localsearch"
)

func atMostOneProblem() *core.Problem {
	ub := int64(1)
	return &core.Problem{
		NumVariables: 2,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(0, true), core.NewLit(1, true)},
			Coefficients: []int64{1, 1},
			UpperBound:   &ub,
		}},
		Objective: core.Objective{
			Literals:     []core.VariableIndex{0, 1},
			Coefficients: []int64{1, 1},
		},
	}
}

func feasibleSolution(p *core.Problem, values ...bool) *core.Solution {
	s := core.NewSolution(p)
	for v, val := range values {
		s.SetValue(core.VariableIndex(v), val)
	}
	return s
}

func TestMaintainerDetectsInfeasibilityOnFlip(t *testing.T) {
	p := atMostOneProblem()
	m := localsearch.NewMaintainer(p, rand.New(rand.NewSource(1)))
	m.SetReferenceSolution(feasibleSolution(p, true, false))
	require.True(t, m.IsFeasible())

	m.AddBacktrackingLevel()
	m.Assign([]core.Lit{core.NewLit(1, true)})
	require.False(t, m.ConstraintIsFeasible(core.ConstraintIndex(1)))
	require.False(t, m.IsFeasible())

	m.BacktrackOneLevel()
	require.True(t, m.IsFeasible())
	require.False(t, m.Value(core.VariableIndex(1)))
}

func TestMaintainerObjectiveRowTightensOnPromotion(t *testing.T) {
	p := atMostOneProblem()
	m := localsearch.NewMaintainer(p, rand.New(rand.NewSource(1)))
	sol := feasibleSolution(p, true, false)
	m.SetReferenceSolution(sol)

	m.AddBacktrackingLevel()
	m.Assign([]core.Lit{core.NewLit(0, false)})
	require.True(t, m.IsFeasible())
	require.Equal(t, int64(0), m.ConstraintSum(localsearch.ObjectiveConstraint))

	m.UseCurrentStateAsReference()
	_, ub := m.ConstraintBounds(localsearch.ObjectiveConstraint)
	require.NotNil(t, ub)
	require.Equal(t, int64(-1), *ub)
}

func TestPotentialOneFlipRepairsFindsTheFix(t *testing.T) {
	p := atMostOneProblem()
	m := localsearch.NewMaintainer(p, rand.New(rand.NewSource(7)))
	m.SetReferenceSolution(feasibleSolution(p, true, false))

	m.AddBacktrackingLevel()
	m.Assign([]core.Lit{core.NewLit(1, true)})
	require.False(t, m.IsFeasible())

	repairs := m.PotentialOneFlipRepairs()
	require.NotEmpty(t, repairs)
	for _, lit := range repairs {
		require.True(t, lit.Var() == core.VariableIndex(0) || lit.Var() == core.VariableIndex(1))
	}
}

package localsearch_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/localsearch"
	"github.com/latticeforge/bop/sat"
)

func twoVarConstraintProblem() *core.Problem {
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

func TestConstraintToRepairReturnsTheOnlyBrokenConstraint(t *testing.T) {
	p := twoVarConstraintProblem()
	m := localsearch.NewMaintainer(p, rand.New(rand.NewSource(1)))
	m.SetReferenceSolution(feasibleSolution(p, true, false))
	s := sat.NewSolver(p.NumVariables)
	r := localsearch.NewRepairer(p, m, s)

	m.AddBacktrackingLevel()
	m.Assign([]core.Lit{core.NewLit(1, true)})

	c, ok := r.ConstraintToRepair()
	require.True(t, ok)
	require.Equal(t, core.ConstraintIndex(1), c)
}

func TestNextRepairingTermFindsAFlipThatRestoresFeasibility(t *testing.T) {
	p := twoVarConstraintProblem()
	m := localsearch.NewMaintainer(p, rand.New(rand.NewSource(1)))
	m.SetReferenceSolution(feasibleSolution(p, true, false))
	s := sat.NewSolver(p.NumVariables)
	r := localsearch.NewRepairer(p, m, s)

	m.AddBacktrackingLevel()
	m.Assign([]core.Lit{core.NewLit(1, true)})

	c, ok := r.ConstraintToRepair()
	require.True(t, ok)

	n := core.TermIndex(r.NumTerms(c))
	term := r.NextRepairingTerm(c, 0, n-1)
	require.NotEqual(t, core.InvalidTerm, term)
	require.True(t, r.RepairIsValid(c, term))

	lit := r.GetFlip(c, term)
	m.Assign([]core.Lit{lit})
	require.True(t, m.ConstraintIsFeasible(c))
}

func TestGetFlipReturnsOppositeOfCurrentValue(t *testing.T) {
	p := twoVarConstraintProblem()
	m := localsearch.NewMaintainer(p, rand.New(rand.NewSource(1)))
	m.SetReferenceSolution(feasibleSolution(p, true, false))
	s := sat.NewSolver(p.NumVariables)
	r := localsearch.NewRepairer(p, m, s)

	lit := r.GetFlip(core.ConstraintIndex(1), 0)
	require.NotEqual(t, m.Value(lit.Var()), lit.IsPositive())
}

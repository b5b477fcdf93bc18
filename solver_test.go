package bop_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop"
	"github.com/latticeforge/bop/core"
)

func testParams() *bop.Parameters {
	p := bop.DefaultParameters()
	p.MaxTimeInSeconds = 5 * time.Second
	return p
}

func int64p(v int64) *int64 { return &v }

// TestSolveTwoVariablesTwoConstraints is spec.md §8 E1: an exactly-one
// constraint over x1/x2 plus an at-most-one over x2/x3, objective
// x1+x2, optimal cost 1.
func TestSolveTwoVariablesTwoConstraints(t *testing.T) {
	one := int64(1)
	problem := &bop.Problem{
		NumVariables: 3,
		Constraints: []bop.Constraint{
			{
				Literals:     []core.Lit{bop.NewLit(0, true), bop.NewLit(1, true)},
				Coefficients: []int64{1, 1},
				LowerBound:   &one,
				UpperBound:   &one,
			},
			{
				Literals:     []core.Lit{bop.NewLit(1, true), bop.NewLit(2, true)},
				Coefficients: []int64{1, 1},
				UpperBound:   &one,
			},
		},
		Objective: bop.Objective{
			Literals:     []core.VariableIndex{0, 1, 2},
			Coefficients: []int64{1, 1, 0},
		},
	}

	solver := bop.NewBopSolver(problem, testParams(), nil)
	status, solution := solver.Solve(context.Background())

	require.Equal(t, bop.SolveOptimalSolutionFound, status)
	require.Equal(t, int64(1), solution.Cost())
	require.True(t, solution.Value(0))
	require.False(t, solution.Value(1))
}

// TestSolveUnconstrainedObjectivePicksNegativeCoefficientVariables is
// spec.md §8 E2: with no constraints, the optimum sets each variable to
// the sign of its own objective coefficient term by term.
func TestSolveUnconstrainedObjectivePicksNegativeCoefficientVariables(t *testing.T) {
	problem := &bop.Problem{
		NumVariables: 3,
		Objective: bop.Objective{
			Literals:      []core.VariableIndex{0, 1, 2},
			Coefficients:  []int64{1, 2, -1},
			Offset:        3,
			ScalingFactor: 4,
		},
	}

	solver := bop.NewBopSolver(problem, testParams(), nil)
	status, solution := solver.Solve(context.Background())

	require.Equal(t, bop.SolveOptimalSolutionFound, status)
	require.Equal(t, int64(-1), solution.Cost())
	require.Equal(t, float64(8), solution.ScaledCost())
	require.False(t, solution.Value(0))
	require.False(t, solution.Value(1))
	require.True(t, solution.Value(2))
}

// TestSolvePureSatNoObjective is spec.md §8 E3: an exactly-one
// constraint with an empty objective; any satisfying assignment is
// optimal at cost 0.
func TestSolvePureSatNoObjective(t *testing.T) {
	one := int64(1)
	problem := &bop.Problem{
		NumVariables: 2,
		Constraints: []bop.Constraint{{
			Literals:     []core.Lit{bop.NewLit(0, true), bop.NewLit(1, true)},
			Coefficients: []int64{1, 1},
			LowerBound:   &one,
			UpperBound:   &one,
		}},
	}

	solver := bop.NewBopSolver(problem, testParams(), nil)
	status, solution := solver.Solve(context.Background())

	require.Equal(t, bop.SolveOptimalSolutionFound, status)
	require.Equal(t, int64(0), solution.Cost())
	require.NotEqual(t, solution.Value(0), solution.Value(1))
}

// TestSolveDetectsInfeasibility is spec.md §8 E4: x1 is pinned to both 1
// and 0 by two contradictory equality constraints.
func TestSolveDetectsInfeasibility(t *testing.T) {
	problem := &bop.Problem{
		NumVariables: 1,
		Constraints: []bop.Constraint{
			{
				Literals:     []core.Lit{bop.NewLit(0, true)},
				Coefficients: []int64{1},
				LowerBound:   int64p(1),
				UpperBound:   int64p(1),
			},
			{
				Literals:     []core.Lit{bop.NewLit(0, true)},
				Coefficients: []int64{1},
				LowerBound:   int64p(0),
				UpperBound:   int64p(0),
			},
		},
	}

	solver := bop.NewBopSolver(problem, testParams(), nil)
	status, _ := solver.Solve(context.Background())

	require.Equal(t, bop.SolveInfeasibleProblem, status)
}

// fourCycleVertexCover builds spec.md §8 E5's minimum-vertex-cover
// instance: the 4-cycle (0,1)-(1,2)-(2,3)-(3,0), each edge requiring at
// least one endpoint selected, objective minimizing the number of
// selected vertices. The minimum cover has size 2.
func fourCycleVertexCover() *bop.Problem {
	one := int64(1)
	edge := func(u, v core.VariableIndex) bop.Constraint {
		return bop.Constraint{
			Literals:     []core.Lit{bop.NewLit(u, true), bop.NewLit(v, true)},
			Coefficients: []int64{1, 1},
			LowerBound:   &one,
		}
	}
	return &bop.Problem{
		NumVariables: 4,
		Constraints: []bop.Constraint{
			edge(0, 1), edge(1, 2), edge(2, 3), edge(3, 0),
		},
		Objective: bop.Objective{
			Literals:     []core.VariableIndex{0, 1, 2, 3},
			Coefficients: []int64{1, 1, 1, 1},
		},
	}
}

// TestSolveFourCycleVertexCoverIsProvedOptimal is spec.md §8 E5: the
// minimum vertex cover of a 4-cycle has size 2, and the run must end with
// a cover of that size proved optimal. The test does not check which
// optimizer supplied the proof.
func TestSolveFourCycleVertexCoverIsProvedOptimal(t *testing.T) {
	solver := bop.NewBopSolver(fourCycleVertexCover(), testParams(), nil)
	status, solution := solver.Solve(context.Background())

	require.Equal(t, bop.SolveOptimalSolutionFound, status)
	require.Equal(t, int64(2), solution.Cost())
}

// TestSolveWithHintLocalSearchImproves is spec.md §8 E6: seeding Solve
// with E2's all-ones solution (cost 2) as a feasible hint must still
// converge to the cost-(-1) optimum.
func TestSolveWithHintLocalSearchImproves(t *testing.T) {
	problem := &bop.Problem{
		NumVariables: 3,
		Objective: bop.Objective{
			Literals:      []core.VariableIndex{0, 1, 2},
			Coefficients:  []int64{1, 2, -1},
			Offset:        3,
			ScalingFactor: 4,
		},
	}

	hint := core.NewSolution(problem)
	hint.SetValue(0, true)
	hint.SetValue(1, true)
	hint.SetValue(2, true)
	require.Equal(t, int64(2), hint.Cost())

	solver := bop.NewBopSolver(problem, testParams(), nil)
	status, solution := solver.SolveWithHint(context.Background(), hint)

	require.Equal(t, bop.SolveOptimalSolutionFound, status)
	require.Equal(t, int64(-1), solution.Cost())
}

// TestSolveWithHintInfeasibleHintBecomesAnAssignmentPreference checks
// that an infeasible hint does not short-circuit the search, and that
// SolveWithHint still converges to the true optimum.
func TestSolveWithHintInfeasibleHintBecomesAnAssignmentPreference(t *testing.T) {
	one := int64(1)
	problem := &bop.Problem{
		NumVariables: 2,
		Constraints: []bop.Constraint{{
			Literals:     []core.Lit{bop.NewLit(0, true), bop.NewLit(1, true)},
			Coefficients: []int64{1, 1},
			LowerBound:   &one,
			UpperBound:   &one,
		}},
	}

	hint := core.NewSolution(problem) // (0,0): violates the exactly-one constraint
	require.False(t, hint.IsFeasible())

	solver := bop.NewBopSolver(problem, testParams(), nil)
	status, solution := solver.SolveWithHint(context.Background(), hint)

	require.Equal(t, bop.SolveOptimalSolutionFound, status)
	require.Equal(t, int64(0), solution.Cost())
}

// TestSolveRejectsMultithreadedRequests mirrors BopSolver::SolveWithTimeLimit's
// INVALID_PROBLEM short-circuit for NumberOfSolvers > 1, reserved but
// unimplemented in this scope.
func TestSolveRejectsMultithreadedRequests(t *testing.T) {
	problem := &bop.Problem{NumVariables: 1}
	params := testParams()
	params.NumberOfSolvers = 2

	solver := bop.NewBopSolver(problem, params, nil)
	status, _ := solver.Solve(context.Background())

	require.Equal(t, bop.SolveInvalidProblem, status)
}

// TestSolveRejectsAnInvalidProblem exercises Problem.Validate's failure
// path (an out-of-range objective literal).
func TestSolveRejectsAnInvalidProblem(t *testing.T) {
	problem := &bop.Problem{
		NumVariables: 1,
		Objective: bop.Objective{
			Literals:     []core.VariableIndex{5},
			Coefficients: []int64{1},
		},
	}

	solver := bop.NewBopSolver(problem, testParams(), nil)
	status, _ := solver.Solve(context.Background())

	require.Equal(t, bop.SolveInvalidProblem, status)
}

// Package main demonstrates usage examples for the bop package. This
// file contains runnable examples showing how to build problems, run
// BopSolver, and interpret its results.
package main

import (
	"context"
	"fmt"

	"github.com/latticeforge/bop"
	"github.com/latticeforge/bop/core"
)

// ExampleBasicSolve demonstrates solving a small constrained problem:
// exactly one of x1/x2 is set, at most one of x2/x3 is set, minimize
// x1+x2.
func ExampleBasicSolve() {
	fmt.Println("=== Basic Solve ===")

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

	solver := bop.NewBopSolver(problem, bop.DefaultParameters(), nil)
	status, solution := solver.Solve(context.Background())

	fmt.Printf("status: %s\n", status)
	fmt.Printf("cost: %d\n", solution.Cost())
	fmt.Println()
}

// ExampleUnconstrainedObjective demonstrates a problem with no
// constraints at all: the optimum picks each variable's sign from its
// own objective coefficient.
func ExampleUnconstrainedObjective() {
	fmt.Println("=== Unconstrained Objective ===")

	problem := &bop.Problem{
		NumVariables: 3,
		Objective: bop.Objective{
			Literals:      []core.VariableIndex{0, 1, 2},
			Coefficients:  []int64{1, 2, -1},
			Offset:        3,
			ScalingFactor: 4,
		},
	}

	solver := bop.NewBopSolver(problem, bop.DefaultParameters(), nil)
	status, solution := solver.Solve(context.Background())

	fmt.Printf("status: %s\n", status)
	fmt.Printf("cost: %d, scaled cost: %.1f\n", solution.Cost(), solution.ScaledCost())
	fmt.Println()
}

// ExampleInfeasibleProblem demonstrates two contradictory equality
// constraints on the same variable.
func ExampleInfeasibleProblem() {
	fmt.Println("=== Infeasible Problem ===")

	zero, one := int64(0), int64(1)
	problem := &bop.Problem{
		NumVariables: 1,
		Constraints: []bop.Constraint{
			{
				Literals:     []core.Lit{bop.NewLit(0, true)},
				Coefficients: []int64{1},
				LowerBound:   &one,
				UpperBound:   &one,
			},
			{
				Literals:     []core.Lit{bop.NewLit(0, true)},
				Coefficients: []int64{1},
				LowerBound:   &zero,
				UpperBound:   &zero,
			},
		},
	}

	solver := bop.NewBopSolver(problem, bop.DefaultParameters(), nil)
	status, _ := solver.Solve(context.Background())

	fmt.Printf("status: %s\n", status)
	fmt.Println()
}

// ExampleMinimumVertexCover demonstrates the minimum-vertex-cover
// encoding: one "at least one endpoint" constraint per edge, objective
// minimizing the number of selected vertices, over the 4-cycle
// (0,1)-(1,2)-(2,3)-(3,0).
func ExampleMinimumVertexCover() {
	fmt.Println("=== Minimum Vertex Cover ===")

	one := int64(1)
	edge := func(u, v core.VariableIndex) bop.Constraint {
		return bop.Constraint{
			Literals:     []core.Lit{bop.NewLit(u, true), bop.NewLit(v, true)},
			Coefficients: []int64{1, 1},
			LowerBound:   &one,
		}
	}
	problem := &bop.Problem{
		NumVariables: 4,
		Constraints: []bop.Constraint{
			edge(0, 1), edge(1, 2), edge(2, 3), edge(3, 0),
		},
		Objective: bop.Objective{
			Literals:     []core.VariableIndex{0, 1, 2, 3},
			Coefficients: []int64{1, 1, 1, 1},
		},
	}

	solver := bop.NewBopSolver(problem, bop.DefaultParameters(), nil)
	status, solution := solver.Solve(context.Background())

	fmt.Printf("status: %s\n", status)
	fmt.Printf("cover size: %d\n", solution.Cost())
	fmt.Println()
}

// ExampleSolveWithHint demonstrates seeding the search with a feasible
// incumbent (all variables true, cost 2) that local search then
// improves on.
func ExampleSolveWithHint() {
	fmt.Println("=== SolveWithHint ===")

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
	fmt.Printf("hint cost: %d\n", hint.Cost())

	solver := bop.NewBopSolver(problem, bop.DefaultParameters(), nil)
	status, solution := solver.SolveWithHint(context.Background(), hint)

	fmt.Printf("status: %s\n", status)
	fmt.Printf("final cost: %d\n", solution.Cost())
	fmt.Println()
}

// main runs all the examples to demonstrate the bop package's usage.
func main() {
	fmt.Println("Bop Package Examples")
	fmt.Println("=====================")
	fmt.Println()

	ExampleBasicSolve()
	ExampleUnconstrainedObjective()
	ExampleInfeasibleProblem()
	ExampleMinimumVertexCover()
	ExampleSolveWithHint()

	fmt.Println("All examples completed successfully!")
}

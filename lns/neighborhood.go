// Package lns implements the large-neighborhood-search optimizers of
// spec.md §4.7: three ways to pick a subset of variables to relax around
// a known feasible solution, and two drivers (adaptive Luby-paced,
// complete single-shot) that repeatedly fix a neighborhood and re-solve
// it. Grounded on the teacher's RNG-driven restart heuristics
// (sat/heuristics_advanced.go) for shuffling/seeding style.
package lns

import (
	"math"
	"math/rand"

	"github.com/latticeforge/bop/core"
)

// Generator picks which variables to leave unassigned (the neighborhood)
// and fixes the rest on solver's trail via decisions, stopping the
// moment it detects local infeasibility (spec.md §4.7: "on infeasibility
// detected during the fix loop, return early"). Returns false in that
// case; true otherwise, including when it only partially reached the
// target neighborhood size (exhausted candidates).
type Generator interface {
	Name() string
	Generate(problem *core.Problem, solution *core.Solution, solver core.SatSolver, difficulty float64, rng *rand.Rand) bool
}

func targetUnfixed(problem *core.Problem, difficulty float64) int {
	return int(math.Round(difficulty * float64(problem.NumVariables)))
}

// tryFix enqueues lit as a decision and reports whether it actually took
// hold: a clean propagation, or a conflict whose backjump still leaves
// lit's variable bound to the desired value.
func tryFix(solver core.SatSolver, lit core.Lit) bool {
	if solver.EnqueueDecisionAndBackjumpOnConflict(lit) == 0 {
		return true
	}
	v, assigned := solver.Value(lit.Var())
	return assigned && v == lit.IsPositive()
}

func shuffledInts(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}

// lowCost reports the value of an objective variable with coefficient
// coeff that contributes nothing extra to a minimizing objective: false
// for a non-negative coefficient, true for a negative one (mirrors
// state.NewProblemState's own "lucky assignment" rule).
func lowCost(coeff int64) bool { return coeff < 0 }

// ObjectiveBased fixes objective variables that are already at their
// low-cost value, leaving the rest of the search to find better values
// for the (presumably more contested) remainder.
type ObjectiveBased struct{}

func (ObjectiveBased) Name() string { return "ObjectiveBased" }

// Generate fixes low-cost objective variables in random order until the
// number of remaining unassigned variables would drop to or below the
// target; per spec.md §4.7 ("prefer the larger neighborhood side") it
// never fixes the variable that would be the first to undershoot the
// target, so the neighborhood stays at least as large as requested.
func (ObjectiveBased) Generate(problem *core.Problem, solution *core.Solution, solver core.SatSolver, difficulty float64, rng *rand.Rand) bool {
	target := targetUnfixed(problem, difficulty)
	need := problem.NumVariables - target
	if need <= 0 {
		return true
	}

	type candidate struct {
		v    core.VariableIndex
		want bool
	}
	var cands []candidate
	for i, v := range problem.Objective.Literals {
		want := lowCost(problem.Objective.Coefficients[i])
		if solution.Value(v) == want {
			cands = append(cands, candidate{v, want})
		}
	}
	order := shuffledInts(rng, len(cands))

	unassigned := func() int {
		count := 0
		for v := 0; v < problem.NumVariables; v++ {
			if _, assigned := solver.Value(core.VariableIndex(v)); !assigned {
				count++
			}
		}
		return count
	}
	for _, i := range order {
		if unassigned() <= target {
			break
		}
		c := cands[i]
		if _, assigned := solver.Value(c.v); assigned {
			continue
		}
		level := solver.CurrentDecisionLevel()
		if !tryFix(solver, core.NewLit(c.v, c.want)) {
			return false
		}
		if unassigned() < target {
			solver.Backtrack(level)
			break
		}
	}
	return true
}

// ConstraintBased marks every variable touched by a random subset of
// small constraints as relaxed, then fixes the remaining low-cost
// objective variables.
type ConstraintBased struct{}

func (ConstraintBased) Name() string { return "ConstraintBased" }

func (ConstraintBased) Generate(problem *core.Problem, solution *core.Solution, solver core.SatSolver, difficulty float64, rng *rand.Rand) bool {
	n := problem.NumVariables
	target := targetUnfixed(problem, difficulty)
	maxSize := int(0.7 * float64(n))

	relaxed := make([]bool, n)
	relaxedCount := 0

	for _, ci := range shuffledInts(rng, len(problem.Constraints)) {
		if relaxedCount >= target {
			break
		}
		c := problem.Constraints[ci]
		if len(c.Literals) > maxSize {
			continue
		}
		for _, lit := range c.Literals {
			v := lit.Var()
			if !relaxed[v] {
				relaxed[v] = true
				relaxedCount++
			}
		}
	}

	for i, v := range problem.Objective.Literals {
		if relaxed[v] {
			continue
		}
		want := lowCost(problem.Objective.Coefficients[i])
		if solution.Value(v) != want {
			continue
		}
		if _, assigned := solver.Value(v); assigned {
			continue
		}
		if !tryFix(solver, core.NewLit(v, want)) {
			return false
		}
	}
	return true
}

// RelationGraph relaxes a BFS-connected cluster of variables sharing
// small constraints, then fixes everything else to its solution value —
// backtracking any single fix that propagation shows would also pin a
// variable inside the relaxed cluster, so the cluster stays genuinely
// free.
type RelationGraph struct{}

func (RelationGraph) Name() string { return "RelationGraph" }

func (RelationGraph) adjacency(problem *core.Problem) [][]core.VariableIndex {
	n := problem.NumVariables
	limit := int(0.1 * float64(n))
	adj := make([][]core.VariableIndex, n)
	type pair struct{ a, b core.VariableIndex }
	seen := make(map[pair]bool)
	for _, c := range problem.Constraints {
		if len(c.Literals) == 0 || len(c.Literals) > limit {
			continue
		}
		for i := 0; i < len(c.Literals); i++ {
			for j := i + 1; j < len(c.Literals); j++ {
				u, v := c.Literals[i].Var(), c.Literals[j].Var()
				if u == v {
					continue
				}
				if u > v {
					u, v = v, u
				}
				if seen[pair{u, v}] {
					continue
				}
				seen[pair{u, v}] = true
				adj[u] = append(adj[u], v)
				adj[v] = append(adj[v], u)
			}
		}
	}
	return adj
}

func (g RelationGraph) Generate(problem *core.Problem, solution *core.Solution, solver core.SatSolver, difficulty float64, rng *rand.Rand) bool {
	n := problem.NumVariables
	if n == 0 {
		return true
	}
	target := targetUnfixed(problem, difficulty)
	adj := g.adjacency(problem)

	relaxed := make([]bool, n)
	seed := core.VariableIndex(rng.Intn(n))
	relaxed[seed] = true
	relaxedCount := 1
	queue := []core.VariableIndex{seed}
	for len(queue) > 0 && relaxedCount < target {
		v := queue[0]
		queue = queue[1:]
		for _, u := range adj[v] {
			if relaxed[u] {
				continue
			}
			relaxed[u] = true
			relaxedCount++
			queue = append(queue, u)
			if relaxedCount >= target {
				break
			}
		}
	}

	relaxedValueBefore := func() map[core.VariableIndex]bool {
		snap := make(map[core.VariableIndex]bool, relaxedCount)
		for v := 0; v < n; v++ {
			vi := core.VariableIndex(v)
			if !relaxed[vi] {
				continue
			}
			if val, ok := solver.Value(vi); ok {
				snap[vi] = val
			}
		}
		return snap
	}

	for v := 0; v < n; v++ {
		vi := core.VariableIndex(v)
		if relaxed[vi] {
			continue
		}
		if _, assigned := solver.Value(vi); assigned {
			continue
		}

		before := relaxedValueBefore()
		level := solver.CurrentDecisionLevel()
		want := solution.Value(vi)
		if !tryFix(solver, core.NewLit(vi, want)) {
			return false
		}

		disturbed := false
		for u, had := range before {
			val, ok := solver.Value(u)
			if !ok || val != had {
				disturbed = true
				break
			}
		}
		if !disturbed {
			for v2 := 0; v2 < n; v2++ {
				u := core.VariableIndex(v2)
				if !relaxed[u] {
					continue
				}
				if _, had := before[u]; had {
					continue
				}
				if _, ok := solver.Value(u); ok {
					disturbed = true
					break
				}
			}
		}
		if disturbed {
			solver.Backtrack(level)
		}
	}
	return true
}

// Package firstsolution implements the guided and randomized-restart
// first-solution generators of spec.md §4.10: each wraps one long-lived
// SAT propagator and biases or randomizes its decision heuristic to
// search for a feasible (and, on repeat calls, improving) assignment.
package firstsolution

import (
	"context"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/sat"
	"github.com/latticeforge/bop/state"
)

// Guided is a guided-SAT first-solution generator: it sets
// SetAssignmentPreference from one policy (spec.md §4.10) and runs a
// small per-call conflict-budgeted solve, resuming across calls on its
// own long-lived propagator.
type Guided struct {
	policy         bopparams.AssignmentPreference
	userPreference []int8

	solver            *sat.Solver
	initialized       bool
	postedFixed       []bool
	postedClauseCount int
}

// NewGuided builds a generator biased by policy. kUserGuided additionally
// needs SetUserPreference called before its first Optimize.
func NewGuided(policy bopparams.AssignmentPreference) *Guided {
	return &Guided{policy: policy}
}

// SetUserPreference supplies the external bias kUserGuided reads (spec.md
// §4.12: "copies [the hint] into state.assignment_preference").
func (g *Guided) SetUserPreference(pref []int8) { g.userPreference = pref }

func (g *Guided) Name() string {
	switch g.policy {
	case bopparams.LPGuided:
		return "LPGuidedFirstSolution"
	case bopparams.ObjectiveGuided:
		return "ObjectiveGuidedFirstSolution"
	case bopparams.UserGuided:
		return "UserGuidedFirstSolution"
	default:
		return "NotGuidedFirstSolution"
	}
}

// ShouldBeRun reports whether this policy variant currently has the
// input it needs: kLpGuided needs a full LP primal vector, kUserGuided a
// matching-length preference; the other two policies always qualify.
func (g *Guided) ShouldBeRun(ps *state.ProblemState) bool {
	if ps.IsOptimal() || ps.IsInfeasible() {
		return false
	}
	n := ps.Problem().NumVariables
	switch g.policy {
	case bopparams.LPGuided:
		return len(ps.LPValues()) == n
	case bopparams.UserGuided:
		return len(g.userPreference) == n
	default:
		return true
	}
}

func (g *Guided) ensureInitialized(ps *state.ProblemState) error {
	if g.initialized {
		return nil
	}
	problem := ps.Problem()
	g.solver = sat.NewSolver(problem.NumVariables)
	if err := ps.LoadIntoSolver(g.solver, false); err != nil {
		return err
	}
	g.postedFixed = make([]bool, problem.NumVariables)
	for v := 0; v < problem.NumVariables; v++ {
		if ps.IsFixed(core.VariableIndex(v)) {
			g.postedFixed[v] = true
		}
	}
	g.postedClauseCount = ps.BinaryClauses().Len()
	g.initialized = true
	return nil
}

// syncState replays fixed variables and binary clauses learned since the
// last call, mirroring package coreguided's incremental approach: this
// generator keeps one propagator across calls rather than rebuilding one
// from LoadIntoSolver every time.
func (g *Guided) syncState(ps *state.ProblemState) error {
	problem := ps.Problem()
	for v := 0; v < problem.NumVariables; v++ {
		vi := core.VariableIndex(v)
		if g.postedFixed[v] || !ps.IsFixed(vi) {
			continue
		}
		if err := g.solver.AddUnitClause(core.NewLit(vi, ps.FixedValue(vi))); err != nil {
			return err
		}
		g.postedFixed[v] = true
	}
	all := ps.BinaryClauses().All()
	for _, pair := range all[g.postedClauseCount:] {
		if err := g.solver.AddBinaryClause(pair[0], pair[1]); err != nil {
			return err
		}
	}
	g.postedClauseCount = len(all)
	return nil
}

// buildPreference derives the per-variable bias array for the current
// policy, or nil if the policy leaves the solver's default heuristic
// alone.
func (g *Guided) buildPreference(ps *state.ProblemState) []int8 {
	n := ps.Problem().NumVariables
	switch g.policy {
	case bopparams.LPGuided:
		lp := ps.LPValues()
		if len(lp) != n {
			return nil
		}
		pref := make([]int8, n)
		for v := 0; v < n; v++ {
			if lp[v] >= 0.5 {
				pref[v] = 1
			} else {
				pref[v] = -1
			}
		}
		return pref
	case bopparams.ObjectiveGuided:
		pref := make([]int8, n)
		obj := ps.Problem().Objective
		for i, v := range obj.Literals {
			switch {
			case obj.Coefficients[i] < 0:
				pref[v] = 1
			case obj.Coefficients[i] > 0:
				pref[v] = -1
			}
		}
		return pref
	case bopparams.UserGuided:
		if len(g.userPreference) != n {
			return nil
		}
		return g.userPreference
	default:
		return nil
	}
}

// Optimize runs one guided_sat_conflicts_chunk-bounded solve attempt.
func (g *Guided) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	if err := g.ensureInitialized(ps); err != nil {
		return core.StatusLimitReached
	}
	if err := g.syncState(ps); err != nil {
		return core.StatusLimitReached
	}

	if pref := g.buildPreference(ps); pref != nil {
		g.solver.SetAssignmentPreference(pref)
	}

	chunk := params.GuidedSatConflictsChunk
	if chunk <= 0 {
		chunk = 1000
	}
	callBudget := budget
	if callBudget.MaxConflicts <= 0 || callBudget.MaxConflicts > chunk {
		callBudget.MaxConflicts = chunk
	}

	switch g.solver.Solve(ctx, nil, callBudget) {
	case core.StatusSolutionFound:
		values := make([]bool, ps.Problem().NumVariables)
		for v := range values {
			val, _ := g.solver.Value(core.VariableIndex(v))
			values[v] = val
		}
		info.Solution = core.NewSolutionFromValues(ps.Problem(), values)
		return core.StatusSolutionFound

	case core.StatusInfeasible:
		if ps.Solution().IsFeasible() {
			info.ReportsOptimal = true
			return core.StatusOptimalSolutionFound
		}
		info.ReportsInfeasible = true
		return core.StatusInfeasible

	default:
		return core.StatusLimitReached
	}
}

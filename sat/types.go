// Package sat is the concrete CDCL backend the rest of the engine
// treats as the core.SatSolver collaborator (spec.md SS1/SS4.13):
// watched-literal two-watch propagation, VSIDS activity, first-UIP
// conflict analysis, Luby-paced restarts, tiered learned-clause
// deletion, assumption-based solving with core extraction, and a
// re-scanning pseudo-Boolean propagator for linear constraints.
//
// Generalized from the teacher's string-keyed CDCLSolver
// (sat/cdcl.go, sat/trail.go, sat/heuristics.go,
// sat/conflict_analysis.go) to dense int32 core.VariableIndex-based
// literals, since BOP's variable set is always a contiguous [0, n)
// range rather than an open string namespace.
package sat

import "github.com/latticeforge/bop/core"

// clause is a disjunction of literals, watched on its first two
// entries during propagation. Units added through AddUnitClause go
// directly onto the trail without a *clause, and binary clauses are
// propagated through a dedicated binary watch list, matching the
// teacher's special-casing of small clauses for performance.
type clause struct {
	lits     []core.Lit
	learned  bool
	lbd      int
	activity float64
}

// pbConstraint is lb <= sum(coeff_i * lit_i) <= ub, propagated by
// re-scanning all of its terms whenever one of its literals is
// assigned; no running slack is kept between assignments. Grounded on
// gophersat's PBConstr (other_examples material, cited only as a design
// cue — see DESIGN.md).
type pbConstraint struct {
	lits  []core.Lit
	coefs []int64
	lb    *int64
	ub    *int64
}

// watchRef points at one clause's watch slot; stored per-literal so
// propagation only visits clauses that actually watch the falsified
// literal.
type watchRef struct {
	cl    *clause
	other core.Lit // the clause's other watched literal, cached to skip a lookup
}

// assignState is the three-valued truth of a variable during search.
type assignState int8

const (
	unassigned assignState = 0
	assignedTrue assignState = 1
	assignedFalse assignState = 2
)

// SolverStatistics mirrors the teacher's SolverStatistics struct,
// generalized with the deterministic-time counter spec.md's TimeLimit
// consumes.
type SolverStatistics struct {
	Conflicts         int64
	Decisions         int64
	Propagations      int64
	Restarts          int64
	LearnedClauses    int64
	DeletedClauses    int64
	DeterministicTime float64
}

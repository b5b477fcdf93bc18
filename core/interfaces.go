package core

import "context"

// Budget bounds a single SatSolver.Solve call: a conflict count and a
// deterministic-time slice. Either may be zero meaning "no extra cap
// beyond the ambient TimeLimit".
type Budget struct {
	MaxConflicts       int
	DeterministicLimit float64
}

// SatSolver is the contract spec.md SS1 says the engine treats as an
// external collaborator: assignment, trail, incremental clause/linear
// constraint addition, assumption-based solving with core extraction,
// and deterministic-time accounting. Package sat ships the concrete
// CDCL implementation; every optimizer package only depends on this
// interface so a different backend could be swapped in.
type SatSolver interface {
	// NumVariables returns the current variable count.
	NumVariables() int

	// NewVariables grows the solver by n fresh variables and returns the
	// index of the first one added.
	NewVariables(n int) VariableIndex

	// AddUnitClause asserts lit at the root level.
	AddUnitClause(lit Lit) error

	// AddBinaryClause asserts (a or b) at the root level.
	AddBinaryClause(a, b Lit) error

	// AddClause asserts an arbitrary disjunction at the root level.
	AddClause(lits ...Lit) error

	// AddLinearConstraint asserts lb <= sum(coeff_i * lit_i) <= ub at the
	// root level (either bound may be nil).
	AddLinearConstraint(lits []Lit, coeffs []int64, lb, ub *int64) error

	// Solve runs CDCL search under the given assumptions and budget.
	// StatusOptimalSolutionFound is never returned by Solve itself; it
	// returns StatusSolutionFound (SAT), StatusInfeasible (UNSAT at
	// root), StatusAbort (UNSAT under assumptions, i.e. the assumptions
	// are incompatible with the clause set), or StatusLimitReached.
	Solve(ctx context.Context, assumptions []Lit, budget Budget) Status

	// GetLastIncompatibleDecisions returns the unsat core (a subset of
	// the last Solve call's assumptions) valid only immediately after a
	// StatusAbort return from an assumption-based Solve.
	GetLastIncompatibleDecisions() []Lit

	// Value reports the current binding of v and whether it is assigned
	// at all (propagated or decided).
	Value(v VariableIndex) (value bool, assigned bool)

	// EnqueueDecisionAndBackjumpOnConflict pushes lit as a new decision,
	// propagates it, and on conflict lets CDCL backjump as usual. It
	// returns the number of decision levels undone by that backjump (0
	// if the decision propagated cleanly).
	EnqueueDecisionAndBackjumpOnConflict(lit Lit) int

	// Backtrack undoes decisions back to the given level (0 = root).
	Backtrack(level int)

	// CurrentDecisionLevel returns the solver's current level.
	CurrentDecisionLevel() int

	// SaveParameters/RestoreParameters snapshot and restore the mutable
	// search knobs (branching order, polarity, random ratios,
	// assignment preference) so a borrower can always undo its changes,
	// including on error paths.
	SaveParameters() SatParameters
	RestoreParameters(SatParameters)

	// SetAssignmentPreference biases the decision heuristic: pref[v] < 0
	// prefers false, > 0 prefers true, 0 leaves the default.
	SetAssignmentPreference(pref []int8)

	// SetRandomPolarityRatio/SetRandomBranchesRatio configure the
	// randomized-restart generator (spec.md SS4.10).
	SetRandomPolarityRatio(ratio float64)
	SetRandomBranchesRatio(ratio float64)

	// DeterministicTime returns the running deterministic-time counter.
	DeterministicTime() float64
}

// SatParameters is the snapshot type SaveParameters/RestoreParameters
// exchange; its fields are opaque to callers other than sat itself, but
// the type must be exported so interfaces can name it.
type SatParameters struct {
	RandomPolarityRatio float64
	RandomBranchesRatio float64
	PreferredOrder      int
	PolarityStrategy    int
	PhaseSaving         bool
	AssignmentPref      []int8
}

// LPSolver is the contract for the collaborator spec.md SS4.10 calls
// "the LP solver": given a dense relaxation it returns primal values and
// a status. Package linrelax supplies the concrete gonum-backed
// implementation.
type LPSolver interface {
	// Solve minimizes c^T x subject to A x {<=,=} b, 0 <= x <= 1 and
	// returns the optimal value, the primal vector, and the status.
	Solve(c []float64, rows []LPRow, numVars int) (objective float64, primal []float64, status LPStatus, err error)
}

// LPRow is one relaxed row of the LP: sum(coeff_i * x_i) in [lb, ub].
type LPRow struct {
	VarIndices []int
	Coeffs     []float64
	LowerBound *float64
	UpperBound *float64
}

// LPStatus mirrors the handful of LP outcomes spec.md SS4.10 consumes.
type LPStatus int

const (
	LPOptimal LPStatus = iota
	LPImprecise
	LPPrimalFeasible
	LPInfeasible
	LPUnbounded
	LPAbnormal
)

func (s LPStatus) String() string {
	switch s {
	case LPOptimal:
		return "OPTIMAL"
	case LPImprecise:
		return "IMPRECISE"
	case LPPrimalFeasible:
		return "PRIMAL_FEASIBLE"
	case LPInfeasible:
		return "INFEASIBLE"
	case LPUnbounded:
		return "UNBOUNDED"
	default:
		return "ABNORMAL"
	}
}

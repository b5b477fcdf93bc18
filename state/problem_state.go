// Package state holds the monotone knowledge shared across every
// optimizer (ProblemState) and the one-way message an optimizer hands
// back after a call (LearnedInfo), per spec.md SS4.1. Grounded on
// core/types.go's message-struct style and sat/types.go's CNF
// dedup-by-iteration pattern (containsVariable) for the clause manager.
package state

import (
	"log/slog"
	"math"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
)

// ProblemState is the single mutable store the driver (bop.BopSolver)
// owns and writes; every optimizer only ever reads it, synchronizing
// once per call and handing back proposed changes through a
// LearnedInfo that MergeLearnedInfo folds in.
type ProblemState struct {
	problem          *core.Problem
	relativeGapLimit float64

	lowerBound int64
	upperBound int64

	isFixed     []bool
	fixedValues []bool
	numFixed    int

	lpValues []float64

	solution *core.Solution

	updateStamp uint64

	isOptimal    bool
	isInfeasible bool

	clauses *BinaryClauseManager

	logger *slog.Logger
}

// NewProblemState builds the initial state for problem: the lower bound
// is the trivial relaxation (sum of negative objective coefficients,
// since each variable's cheapest term is min(0, coeff)); the initial
// solution is the "lucky" assignment that sets each objective variable
// to whichever of 0/1 minimizes its own term in isolation, leaving
// every other variable at 0. If that assignment happens to be feasible
// it seeds the upper bound; otherwise the upper bound starts at
// +infinity (math.MaxInt64).
func NewProblemState(problem *core.Problem, params *bopparams.Parameters, logger *slog.Logger) *ProblemState {
	if logger == nil {
		logger = slog.Default()
	}
	gap := 1e-4
	if params != nil {
		gap = params.RelativeGapLimit
	}

	var lower int64
	values := make([]bool, problem.NumVariables)
	for i, v := range problem.Objective.Literals {
		c := problem.Objective.Coefficients[i]
		if c < 0 {
			lower += c
			values[v] = true
		}
	}

	ps := &ProblemState{
		problem:          problem,
		relativeGapLimit: gap,
		lowerBound:       lower,
		upperBound:       math.MaxInt64,
		isFixed:          make([]bool, problem.NumVariables),
		fixedValues:      make([]bool, problem.NumVariables),
		solution:         core.NewSolutionFromValues(problem, values),
		clauses:          NewBinaryClauseManager(),
		logger:           logger,
	}
	if ps.solution.IsFeasible() {
		ps.upperBound = ps.solution.Cost()
	}
	return ps
}

// Problem returns the immutable problem the state was built from.
func (ps *ProblemState) Problem() *core.Problem { return ps.problem }

// LowerBound returns the best proven lower bound on the objective.
func (ps *ProblemState) LowerBound() int64 { return ps.lowerBound }

// UpperBound returns the cost of the best known feasible solution
// (math.MaxInt64 if none has been found yet).
func (ps *ProblemState) UpperBound() int64 { return ps.upperBound }

// Solution returns the best known solution; it may be infeasible if
// none has ever satisfied every constraint.
func (ps *ProblemState) Solution() *core.Solution { return ps.solution }

// UpdateStamp returns the monotonically increasing generation counter,
// bumped exactly once per successful MergeLearnedInfo.
func (ps *ProblemState) UpdateStamp() uint64 { return ps.updateStamp }

// IsOptimal reports whether the state has proved lower_bound ==
// upper_bound with a feasible witnessing solution.
func (ps *ProblemState) IsOptimal() bool { return ps.isOptimal }

// IsInfeasible reports whether the state has proved the problem has no
// feasible solution.
func (ps *ProblemState) IsInfeasible() bool { return ps.isInfeasible }

// IsFixed reports whether v has been pinned to a specific value by
// propagated fixed literals.
func (ps *ProblemState) IsFixed(v core.VariableIndex) bool { return ps.isFixed[v] }

// FixedValue returns the value v is pinned to; only meaningful when
// IsFixed(v) is true.
func (ps *ProblemState) FixedValue(v core.VariableIndex) bool { return ps.fixedValues[v] }

// NumFixed returns how many variables are currently pinned.
func (ps *ProblemState) NumFixed() int { return ps.numFixed }

// LPValues returns the last LP relaxation's primal vector, or nil if
// none has been recorded.
func (ps *ProblemState) LPValues() []float64 { return ps.lpValues }

// BinaryClauses exposes the dedup'd learned-binary-clause store for
// optimizers that fold it into the SAT propagator or the LP relaxation.
func (ps *ProblemState) BinaryClauses() *BinaryClauseManager { return ps.clauses }

func (ps *ProblemState) gapClosed() bool {
	if ps.upperBound >= math.MaxInt64 {
		return false
	}
	diff := float64(ps.upperBound - ps.lowerBound)
	if diff <= 0 {
		return true
	}
	denom := math.Abs(float64(ps.upperBound))
	if denom < 1 {
		denom = 1
	}
	return diff/denom <= ps.relativeGapLimit
}

// MergeLearnedInfo folds one optimizer's reported findings into the
// state, per spec.md SS4.1. It returns whether any observable field
// actually changed; update_stamp is bumped at most once regardless of
// how many individual fields fired.
func (ps *ProblemState) MergeLearnedInfo(info *LearnedInfo, status core.Status) bool {
	changed := false

	if len(info.LPValues) > 0 && lpValuesDiffer(ps.lpValues, info.LPValues) {
		if len(info.LPValues) != ps.problem.NumVariables {
			core.PanicInvariant("ProblemState.MergeLearnedInfo",
				"lp_values length does not match problem.NumVariables")
		}
		ps.lpValues = append([]float64(nil), info.LPValues...)
		changed = true
	}

	for _, pair := range info.BinaryClauses {
		a, b := pair[0], pair[1]
		if int(a.Var()) >= ps.problem.NumVariables || int(b.Var()) >= ps.problem.NumVariables {
			continue
		}
		ps.clauses.Add(a, b)
		changed = true
	}

	if info.Solution != nil && info.Solution.IsFeasible() {
		if !ps.solution.IsFeasible() || info.Solution.Cost() < ps.solution.Cost() {
			ps.solution = info.Solution.Clone()
			changed = true
		}
	}

	if info.LowerBound != NoLowerBound && info.LowerBound > ps.lowerBound {
		ps.lowerBound = info.LowerBound
		changed = true
	}

	for _, lit := range info.FixedLiterals {
		v := lit.Var()
		if int(v) >= ps.problem.NumVariables {
			continue
		}
		want := lit.IsPositive()
		if ps.isFixed[v] {
			if ps.fixedValues[v] != want {
				if !ps.isInfeasible {
					ps.markInfeasibleLocked()
				}
				ps.updateStamp++
				return true
			}
			continue
		}
		ps.isFixed[v] = true
		ps.fixedValues[v] = want
		ps.numFixed++
		changed = true
	}

	if ps.numFixed == ps.problem.NumVariables && !ps.isOptimal && !ps.isInfeasible {
		reconstructed := core.NewSolutionFromValues(ps.problem, ps.fixedValues)
		if reconstructed.IsFeasible() {
			if !ps.solution.IsFeasible() || reconstructed.Cost() < ps.solution.Cost() {
				ps.solution = reconstructed
			}
			ps.markOptimalLocked()
		} else {
			ps.markInfeasibleLocked()
		}
		changed = true
	}

	if ps.solution.IsFeasible() && ps.solution.Cost() < ps.upperBound {
		ps.upperBound = ps.solution.Cost()
		changed = true
		if ps.gapClosed() {
			ps.isOptimal = true
		}
	}

	switch status {
	case core.StatusOptimalSolutionFound:
		if !ps.isOptimal {
			ps.isOptimal = true
			changed = true
		}
	case core.StatusInfeasible:
		if !ps.isInfeasible {
			ps.isInfeasible = true
			changed = true
		}
	}

	if changed {
		ps.updateStamp++
		ps.logger.Debug("merged learned info", "update_stamp", ps.updateStamp,
			"lower_bound", ps.lowerBound, "upper_bound", ps.upperBound,
			"optimal", ps.isOptimal, "infeasible", ps.isInfeasible)
	}
	return changed
}

// MarkAsOptimal requires a feasible solution and pins lower_bound to
// upper_bound.
func (ps *ProblemState) MarkAsOptimal() {
	if !ps.solution.IsFeasible() {
		core.PanicInvariant("ProblemState.MarkAsOptimal", "no feasible solution to certify optimal")
	}
	ps.markOptimalLocked()
	ps.updateStamp++
}

// MarkAsInfeasible requires no feasible solution on record and pushes
// lower_bound strictly above upper_bound. Preserving the original
// source's INT64_MAX behavior (spec.md SS9): when no finite upper bound
// has ever been recorded, upper_bound is pinned to math.MaxInt64-1 and
// lower_bound to math.MaxInt64, rather than leaving upper_bound at
// +infinity and failing the lower>upper invariant by omission.
func (ps *ProblemState) MarkAsInfeasible() {
	if ps.solution.IsFeasible() {
		core.PanicInvariant("ProblemState.MarkAsInfeasible", "a feasible solution is on record")
	}
	ps.markInfeasibleLocked()
	ps.updateStamp++
}

// markOptimalLocked applies the lower_bound==upper_bound bookkeeping
// shared by the public MarkAsOptimal and the total-fixed-variable path
// inside MergeLearnedInfo; it does not itself bump update_stamp.
func (ps *ProblemState) markOptimalLocked() {
	if ps.solution.Cost() < ps.upperBound {
		ps.upperBound = ps.solution.Cost()
	}
	ps.lowerBound = ps.upperBound
	ps.isOptimal = true
}

// markInfeasibleLocked applies the INT64_MAX-preserving bound push
// shared by the public MarkAsInfeasible and the total-fixed-variable
// path inside MergeLearnedInfo; it does not itself bump update_stamp.
func (ps *ProblemState) markInfeasibleLocked() {
	if ps.upperBound >= math.MaxInt64 {
		ps.upperBound = math.MaxInt64 - 1
		ps.lowerBound = math.MaxInt64
	} else {
		ps.lowerBound = ps.upperBound + 1
	}
	ps.isInfeasible = true
}

// GetLearnedInfo snapshots the state into a fresh LearnedInfo, including
// every binary clause added since the last SynchronizationDone.
func (ps *ProblemState) GetLearnedInfo() *LearnedInfo {
	info := NewLearnedInfo()
	info.LowerBound = ps.lowerBound
	if ps.solution.IsFeasible() {
		info.Solution = ps.solution.Clone()
	}
	if len(ps.lpValues) > 0 {
		info.LPValues = append([]float64(nil), ps.lpValues...)
	}
	info.BinaryClauses = ps.clauses.NewlyAdded()
	info.ReportsOptimal = ps.isOptimal
	info.ReportsInfeasible = ps.isInfeasible
	return info
}

// SynchronizationDone resets the "newly added since last sync" window
// on the binary clause manager.
func (ps *ProblemState) SynchronizationDone() {
	ps.clauses.ClearNewlyAdded()
}

// LoadIntoSolver replays everything the state knows into a fresh or
// already-seeded SatSolver: the problem's own linear constraints, every
// currently-fixed variable as a unit clause, and every learned binary
// clause. When tightenObjectiveStrict is set it also asserts the
// objective must land strictly below the current upper bound — the
// "find a strictly better solution" constraint spec.md §4.7 and §4.9
// both require of a borrowed propagator. Grounded on the LNS/core-guided
// sections' shared "LoadStateProblemToSatSolver" idiom (spec.md §4.9).
func (ps *ProblemState) LoadIntoSolver(solver core.SatSolver, tightenObjectiveStrict bool) error {
	if want := ps.problem.NumVariables; solver.NumVariables() < want {
		solver.NewVariables(want - solver.NumVariables())
	}
	for _, c := range ps.problem.Constraints {
		if err := solver.AddLinearConstraint(c.Literals, c.Coefficients, c.LowerBound, c.UpperBound); err != nil {
			return err
		}
	}
	for v := core.VariableIndex(0); int(v) < ps.problem.NumVariables; v++ {
		if !ps.isFixed[v] {
			continue
		}
		if err := solver.AddUnitClause(core.NewLit(v, ps.fixedValues[v])); err != nil {
			return err
		}
	}
	for _, pair := range ps.clauses.All() {
		if err := solver.AddBinaryClause(pair[0], pair[1]); err != nil {
			return err
		}
	}
	if tightenObjectiveStrict && ps.upperBound < math.MaxInt64 {
		ub := ps.upperBound - 1
		obj := ps.problem.Objective
		lits := make([]core.Lit, len(obj.Literals))
		for i, v := range obj.Literals {
			lits[i] = core.NewLit(v, true)
		}
		if err := solver.AddLinearConstraint(lits, obj.Coefficients, nil, &ub); err != nil {
			return err
		}
	}
	return nil
}

// lpValuesDiffer reports whether b should replace a wholesale: a length
// mismatch counts as "differs" so the caller's length check (which
// panics via InvariantError) still runs.
func lpValuesDiffer(a, b []float64) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}

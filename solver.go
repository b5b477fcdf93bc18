package bop

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/coreguided"
	"github.com/latticeforge/bop/firstsolution"
	"github.com/latticeforge/bop/linrelax"
	"github.com/latticeforge/bop/lns"
	"github.com/latticeforge/bop/localsearch"
	"github.com/latticeforge/bop/portfolio"
	"github.com/latticeforge/bop/state"
)

// BopSolver is the outer driver of spec.md §4.12: it owns a ProblemState
// and a PortfolioOptimizer over the default strategy roster, and loops
// the portfolio until the state is proved optimal or infeasible, the
// selector runs dry, or the time budget expires.
type BopSolver struct {
	problem *core.Problem
	params  *bopparams.Parameters
	logger  *slog.Logger
	runID   string

	ps         *state.ProblemState
	portfolio  *portfolio.PortfolioOptimizer
	userGuided *firstsolution.Guided
}

// NewBopSolver builds a driver over problem. params defaults to
// DefaultParameters() when nil; logger defaults to slog.Default().
func NewBopSolver(problem *Problem, params *Parameters, logger *slog.Logger) *BopSolver {
	if params == nil {
		params = bopparams.DefaultParameters()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BopSolver{
		problem: problem,
		params:  params,
		logger:  logger,
		runID:   uuid.NewString(),
	}
}

// defaultRoster builds the stock optimizer set matching bop_portfolio.cc's
// CreateOptimizers default case list: one proof-producing core-guided
// search, every first-solution generator variant (including a held
// user-guided one SolveWithHint can steer), the LP relaxation, both LNS
// variants, and local search.
func defaultRoster(rng *rand.Rand, userGuided *firstsolution.Guided) []state.Optimizer {
	return []state.Optimizer{
		coreguided.New(),
		firstsolution.NewGuided(bopparams.NotGuided),
		firstsolution.NewGuided(bopparams.LPGuided),
		firstsolution.NewGuided(bopparams.ObjectiveGuided),
		userGuided,
		firstsolution.NewRandom(rng),
		linrelax.New(),
		lns.NewAdaptive(rng),
		lns.NewComplete(),
		localsearch.New(rng),
	}
}

// buildOnce lazily constructs the ProblemState and portfolio the first
// time Solve/SolveWithHint runs, so repeated calls on the same
// BopSolver resume the same search rather than restarting it.
func (b *BopSolver) buildOnce() {
	if b.ps != nil {
		return
	}
	rng := rand.New(rand.NewSource(b.params.RandomSeed))
	b.userGuided = firstsolution.NewGuided(bopparams.UserGuided)
	b.ps = state.NewProblemState(b.problem, b.params, b.logger)
	b.portfolio = portfolio.New(defaultRoster(rng, b.userGuided))
}

// Solve runs the portfolio loop to completion, honoring ctx's deadline
// in addition to Parameters.MaxTimeInSeconds.
func (b *BopSolver) Solve(ctx context.Context) (SolveStatus, *Solution) {
	return b.solve(ctx, nil)
}

// SolveWithHint is the secondary entry point spec.md §4.12 describes: a
// feasible hint is merged directly and may short-circuit the search if
// it already closes the gap; an infeasible one is instead handed to the
// user-guided first-solution generator as a decision bias.
func (b *BopSolver) SolveWithHint(ctx context.Context, hint *Solution) (SolveStatus, *Solution) {
	return b.solve(ctx, hint)
}

func (b *BopSolver) solve(ctx context.Context, hint *Solution) (core.SolveStatus, *core.Solution) {
	start := time.Now()

	if err := b.problem.Validate(); err != nil {
		b.logger.Error("invalid problem", "run_id", b.runID, "error", err)
		return core.SolveInvalidProblem, core.NewSolution(b.problem)
	}
	if b.params.NumberOfSolvers > 1 {
		b.logger.Error("multithreaded solving is not implemented", "run_id", b.runID,
			"number_of_solvers", b.params.NumberOfSolvers)
		return core.SolveInvalidProblem, core.NewSolution(b.problem)
	}

	b.buildOnce()

	if hint != nil {
		if hint.IsFeasible() {
			b.logger.Debug("first solution is feasible", "run_id", b.runID)
			info := state.NewLearnedInfo()
			info.Solution = hint.Clone()
			b.ps.MergeLearnedInfo(info, core.StatusContinue)
			if b.ps.IsOptimal() {
				return b.finish(start, core.SolveOptimalSolutionFound)
			}
		} else {
			b.logger.Debug("first solution is infeasible, using it as an assignment preference",
				"run_id", b.runID)
			b.userGuided.SetUserPreference(preferenceFromSolution(hint))
		}
	}

	ctx, cancel := b.withDeadline(ctx)
	defer cancel()

	info := state.NewLearnedInfo()
	for ctx.Err() == nil {
		status := b.portfolio.Optimize(ctx, b.params, b.ps, info, core.Budget{})
		b.ps.MergeLearnedInfo(info, status)

		if b.ps.IsOptimal() {
			return b.finish(start, core.SolveOptimalSolutionFound)
		}
		if b.ps.IsInfeasible() {
			return b.finish(start, core.SolveInfeasibleProblem)
		}
		if status == core.StatusAbort {
			break
		}
		info.Clear()
	}

	if b.ps.Solution().IsFeasible() {
		return b.finish(start, core.SolveFeasibleSolutionFound)
	}
	return b.finish(start, core.SolveNoSolutionFound)
}

// preferenceFromSolution converts an infeasible hint's assignment into
// the +1/-1 bias array firstsolution.Guided.SetUserPreference expects.
func preferenceFromSolution(hint *core.Solution) []int8 {
	pref := make([]int8, hint.Len())
	for v := 0; v < hint.Len(); v++ {
		if hint.Value(core.VariableIndex(v)) {
			pref[v] = 1
		} else {
			pref[v] = -1
		}
	}
	return pref
}

// withDeadline layers Parameters.MaxTimeInSeconds on top of the caller's
// ctx, whichever fires first.
func (b *BopSolver) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.params.MaxTimeInSeconds > 0 {
		return context.WithTimeout(ctx, b.params.MaxTimeInSeconds)
	}
	return context.WithCancel(ctx)
}

// scaledGapPercent mirrors bop_solver.cc's GetScaledGap: the relative gap
// between the current solution's scaled cost and the scaled lower bound.
// Returns 0 for an infeasible or exactly-zero-cost solution, where the
// ratio is undefined.
func (b *BopSolver) scaledGapPercent() float64 {
	sol := b.ps.Solution()
	if !sol.IsFeasible() {
		return 0
	}
	cost := sol.ScaledCost()
	if cost == 0 {
		return 0
	}
	obj := b.problem.Objective
	bound := float64(b.ps.LowerBound()+obj.Offset) * obj.ScalingFactor
	return 100 * math.Abs(cost-bound) / math.Abs(cost)
}

// finish logs a human-readable run summary and returns the final status
// alongside the best solution on record.
func (b *BopSolver) finish(start time.Time, status core.SolveStatus) (core.SolveStatus, *core.Solution) {
	b.logger.Info("solve finished",
		"run_id", b.runID,
		"status", status.String(),
		"elapsed", time.Since(start),
		"lower_bound", humanize.Comma(b.ps.LowerBound()),
		"upper_bound", humanize.Comma(b.ps.UpperBound()),
		"gap_percent", humanize.FtoaWithDigits(b.scaledGapPercent(), 2),
	)
	return status, b.ps.Solution()
}

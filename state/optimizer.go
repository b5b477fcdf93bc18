package state

import (
	"context"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
)

// Optimizer is the contract every strategy (local search, LNS,
// core-guided, LP relaxation, first-solution, the portfolio itself)
// implements, per spec.md §4.11's `PortfolioOptimizer::Optimize` loop.
// Each call reads ps and writes proposed changes into info rather than
// mutating ps directly; the driver folds info in via
// ProblemState.MergeLearnedInfo between calls.
type Optimizer interface {
	// Name identifies the optimizer for logging and selector bookkeeping.
	Name() string

	// ShouldBeRun reports whether this optimizer can usefully run against
	// the current state (e.g. LNS needs a feasible solution on record).
	ShouldBeRun(ps *ProblemState) bool

	// Optimize runs one bounded slice of work and reports info. budget
	// caps both conflicts and deterministic time for this call; ctx
	// additionally carries the overall wall-clock deadline.
	Optimize(ctx context.Context, params *bopparams.Parameters, ps *ProblemState, info *LearnedInfo, budget core.Budget) core.Status
}

package portfolio

import (
	"context"
	"math"
	"time"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/state"
)

// PortfolioOptimizer is spec.md §4.11's top-level adaptive scheduler: it
// owns an ordered list of concrete optimizers and an OptimizerSelector,
// runs exactly one chosen optimizer per Optimize call, and feeds its
// outcome back into the selector's score.
//
// Unlike the original design, this PortfolioOptimizer owns no shared SAT
// propagator of its own: every sub-optimizer in this module
// (coreguided.Optimizer, firstsolution.Guided/Random, lns.Adaptive/
// Complete, linrelax.Optimizer) already builds and incrementally
// synchronizes its own propagator or LP model against ProblemState, so
// there is nothing left for the portfolio to own or synchronize
// centrally — SynchronizeIfNeeded's unsat-detection role is already
// covered by ProblemState.IsInfeasible, checked in ShouldBeRun.
type PortfolioOptimizer struct {
	optimizers []state.Optimizer
	selector   *OptimizerSelector

	consecutiveFailures int
}

// New builds a portfolio over optimizers, in the given order.
func New(optimizers []state.Optimizer) *PortfolioOptimizer {
	names := make([]string, len(optimizers))
	for i, o := range optimizers {
		names[i] = o.Name()
	}
	return &PortfolioOptimizer{
		optimizers: optimizers,
		selector:   NewOptimizerSelector(names),
	}
}

func (p *PortfolioOptimizer) Name() string { return "PortfolioOptimizer" }

func (p *PortfolioOptimizer) ShouldBeRun(ps *state.ProblemState) bool {
	return !ps.IsOptimal() && !ps.IsInfeasible()
}

// Stats exposes the selector's current per-optimizer bookkeeping, for
// run-summary logging.
func (p *PortfolioOptimizer) Stats() []RunInfo { return p.selector.Stats() }

// Optimize runs spec.md §4.11's PortfolioOptimizer::Optimize: refresh
// runnability, select one optimizer, run it under the given budget, and
// score the result.
//
// Selector scoring wants deterministic time spent, per spec.md §4.11
// ("to make the behavior deterministic, it is recommended to use the
// deterministic time instead of the elapsed time"); but each
// sub-optimizer privately owns its SAT/LP collaborator, so its
// deterministic-time counter isn't observable from here. Wall-clock
// elapsed time substitutes, a deviation that costs the selector some
// reproducibility across machines, not correctness.
func (p *PortfolioOptimizer) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	for i, o := range p.optimizers {
		p.selector.SetRunnable(i, o.ShouldBeRun(ps))
	}

	wasFeasible := ps.Solution().IsFeasible()
	initCost := int64(math.MaxInt64)
	if wasFeasible {
		initCost = ps.Solution().Cost()
	}

	selected := p.selector.SelectOptimizer()
	if selected == InvalidOptimizer {
		return core.StatusAbort
	}

	start := time.Now()
	status := p.optimizers[selected].Optimize(ctx, params, ps, info, budget)
	elapsed := time.Since(start).Seconds()

	if status == core.StatusAbort {
		p.selector.MarkUnselectable(selected)
	}

	var gain int64
	switch {
	case status != core.StatusSolutionFound && status != core.StatusOptimalSolutionFound:
		gain = 0
	case info.Solution == nil:
		// The optimizer confirmed optimality without exhibiting a new
		// witness (e.g. the core-guided search closing the gap on an
		// already-known solution); there is nothing new to reward.
		gain = 0
	case !wasFeasible:
		gain = 1
	default:
		gain = initCost - info.Solution.Cost()
	}
	p.selector.UpdateScore(gain, elapsed)

	if status == core.StatusInfeasible || status == core.StatusOptimalSolutionFound {
		return status
	}

	if params.MaxNumberOfConsecutiveFailingOptimizerCalls > 0 && ps.Solution().IsFeasible() {
		if status == core.StatusSolutionFound {
			p.consecutiveFailures = 0
		} else {
			p.consecutiveFailures++
		}
		if p.consecutiveFailures > params.MaxNumberOfConsecutiveFailingOptimizerCalls {
			return core.StatusAbort
		}
	}

	return core.StatusContinue
}

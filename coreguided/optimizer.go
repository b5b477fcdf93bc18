// Package coreguided implements SatCoreBasedOptimizer (spec.md §4.9): a
// stratified, totalizer-encoded core-guided search over the objective.
// Each unsat core found under assumptions is folded into a lazily merged
// encoding.EncodingNode whose weight absorbs the core's minimum
// assumption weight, driving the proven lower bound up one stratum at a
// time until it meets the best known upper bound.
package coreguided

import (
	"context"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/encoding"
	"github.com/latticeforge/bop/sat"
	"github.com/latticeforge/bop/state"
)

// Optimizer holds the long-lived SAT wrapper and totalizer forest across
// Optimize calls, per spec.md §4.9's "state between calls": the encoding
// tree, the stratified bound, and the accumulated lower bound all
// persist, as does the solver's learned-clause store.
type Optimizer struct {
	pool   *encoding.Pool
	solver *sat.Solver
	nodes  []core.NodeIndex

	offset               int64
	stratifiedLowerBound int64
	lowerBound           int64

	initialized       bool
	postedFixed       []bool
	postedClauseCount int
}

// New returns an uninitialized optimizer; the first Optimize call builds
// the leaf forest from the problem's objective.
func New() *Optimizer { return &Optimizer{pool: encoding.NewPool()} }

func (o *Optimizer) Name() string { return "SatCoreBasedOptimizer" }

// ShouldBeRun reports whether core-guided search can still make
// progress: it runs unconditionally until the state is proved optimal or
// infeasible.
func (o *Optimizer) ShouldBeRun(ps *state.ProblemState) bool {
	return !ps.IsOptimal() && !ps.IsInfeasible()
}

func (o *Optimizer) ensureInitialized(ps *state.ProblemState) error {
	if o.initialized {
		return nil
	}
	problem := ps.Problem()
	o.solver = sat.NewSolver(problem.NumVariables)
	if err := ps.LoadIntoSolver(o.solver, false); err != nil {
		return err
	}

	o.postedFixed = make([]bool, problem.NumVariables)
	for v := 0; v < problem.NumVariables; v++ {
		if ps.IsFixed(core.VariableIndex(v)) {
			o.postedFixed[v] = true
		}
	}
	o.postedClauseCount = ps.BinaryClauses().Len()

	var maxWeight int64
	for i, v := range problem.Objective.Literals {
		coeff := problem.Objective.Coefficients[i]
		if coeff == 0 {
			continue
		}
		lit, weight := core.NewLit(v, true), coeff
		if coeff < 0 {
			lit, weight = core.NewLit(v, false), -coeff
			o.offset += weight
		}
		idx := encoding.NewLeaf(o.pool, lit, weight)
		o.nodes = append(o.nodes, idx)
		if weight > maxWeight {
			maxWeight = weight
		}
	}
	o.stratifiedLowerBound = maxWeight
	o.initialized = true
	return nil
}

// syncState replays the parts of ps new since the last call: newly fixed
// variables and newly learned binary clauses (spec.md §4.9's
// "LoadStateProblemToSatSolver replays the new bits").
func (o *Optimizer) syncState(ps *state.ProblemState) error {
	problem := ps.Problem()
	for v := 0; v < problem.NumVariables; v++ {
		vi := core.VariableIndex(v)
		if o.postedFixed[v] || !ps.IsFixed(vi) {
			continue
		}
		if err := o.solver.AddUnitClause(core.NewLit(vi, ps.FixedValue(vi))); err != nil {
			return err
		}
		o.postedFixed[v] = true
	}
	all := ps.BinaryClauses().All()
	for _, pair := range all[o.postedClauseCount:] {
		if err := o.solver.AddBinaryClause(pair[0], pair[1]); err != nil {
			return err
		}
	}
	o.postedClauseCount = len(all)
	return nil
}

// processCore folds an unsat core into a new lazily merged node, per
// spec.md §4.9's ProcessCore: each involved node's weight drops by the
// core's minimum weight, and a fresh node over exactly those nodes is
// added with that minimum as its own weight. Core minimization (a short
// SAT call with reversed assumptions, spec.md §4.9) is not implemented —
// the core is used as returned by the solver; this costs some
// efficiency, never correctness, since a superset of a minimal core is
// still a valid core.
func (o *Optimizer) processCore(coreLits []core.Lit, assumptionNode map[core.Lit]core.NodeIndex) error {
	var involved []core.NodeIndex
	minWeight := int64(-1)
	for _, lit := range coreLits {
		idx, ok := assumptionNode[lit]
		if !ok {
			continue
		}
		involved = append(involved, idx)
		w := o.pool.Get(idx).Weight()
		if minWeight < 0 || w < minWeight {
			minWeight = w
		}
	}
	if len(involved) == 0 {
		return nil
	}
	for _, idx := range involved {
		n := o.pool.Get(idx)
		n.SetWeight(n.Weight() - minWeight)
	}

	o.solver.Backtrack(0)

	if len(involved) == 1 {
		// A singleton core: growing the one node by a literal is enough, and
		// the forced literal(0) will be popped (raising lower_bound by
		// min_weight) the next time this node is Reduced.
		idx := involved[0]
		if err := encoding.IncreaseNodeSize(o.pool, o.solver, idx); err != nil {
			return err
		}
		if err := o.solver.AddUnitClause(o.pool.Get(idx).Literal(0)); err != nil {
			return err
		}
		o.pool.Get(idx).SetWeight(minWeight)
		return nil
	}

	merged, err := encoding.MergeCoreLazy(o.pool, o.solver, involved)
	if err != nil {
		return err
	}
	if err := encoding.ForceAtLeastOne(o.pool, o.solver, merged); err != nil {
		return err
	}
	o.pool.Get(merged).SetWeight(minWeight)
	o.nodes = append(o.nodes, merged)
	return nil
}

// Optimize runs one bounded pass of the stratified core-guided loop,
// per spec.md §4.9's six numbered steps.
func (o *Optimizer) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	if err := o.ensureInitialized(ps); err != nil {
		return core.StatusLimitReached
	}
	if err := o.syncState(ps); err != nil {
		return core.StatusLimitReached
	}
	if len(o.nodes) == 0 {
		return core.StatusLimitReached
	}

	// Reduce only looks at root-level facts; a prior call may have left the
	// propagator mid-assumption-trail on StatusAbort.
	o.solver.Backtrack(0)
	for _, idx := range o.nodes {
		pops := encoding.Reduce(o.pool, o.solver, idx)
		o.lowerBound += pops * o.pool.Get(idx).Weight()
	}

	if ps.Solution().IsFeasible() {
		upperBound := ps.Solution().Cost() + o.offset
		gap := upperBound - o.lowerBound
		for _, idx := range o.nodes {
			if err := encoding.ApplyWeightUpperBound(o.pool, o.solver, idx, gap); err != nil {
				return core.StatusLimitReached
			}
		}
	}

	// Each assumption is the negation of the node's literal(0): we assume
	// "this node's share of the cost is zero" and let the solver tell us,
	// via an unsat core, which high-weight terms can't all be zero at once.
	var assumptions []core.Lit
	assumptionNode := make(map[core.Lit]core.NodeIndex)
	for _, idx := range o.nodes {
		n := o.pool.Get(idx)
		if n.Weight() < o.stratifiedLowerBound {
			continue
		}
		lit, ok, err := encoding.GetAssumption(o.pool, o.solver, idx)
		if err != nil {
			return core.StatusLimitReached
		}
		if !ok {
			continue
		}
		assumption := lit.Negation()
		assumptions = append(assumptions, assumption)
		assumptionNode[assumption] = idx
	}

	solveBudget := core.Budget{MaxConflicts: params.MaxNumberOfConflictsInRandomLns}
	switch status := o.solver.Solve(ctx, assumptions, solveBudget); status {
	case core.StatusInfeasible:
		if ps.Solution().IsFeasible() {
			info.ReportsOptimal = true
			return core.StatusOptimalSolutionFound
		}
		info.ReportsInfeasible = true
		return core.StatusInfeasible

	case core.StatusAbort:
		coreLits := o.solver.GetLastIncompatibleDecisions()
		if err := o.processCore(coreLits, assumptionNode); err != nil {
			return core.StatusLimitReached
		}
		return core.StatusLimitReached

	case core.StatusSolutionFound:
		values := make([]bool, ps.Problem().NumVariables)
		for v := range values {
			val, _ := o.solver.Value(core.VariableIndex(v))
			values[v] = val
		}
		info.Solution = core.NewSolutionFromValues(ps.Problem(), values)

		o.stratifiedLowerBound = encoding.MaxWeightBelow(o.pool, o.nodes, o.stratifiedLowerBound)
		if o.stratifiedLowerBound <= 0 {
			info.ReportsOptimal = true
			return core.StatusOptimalSolutionFound
		}
		return core.StatusSolutionFound

	default:
		return core.StatusLimitReached
	}
}

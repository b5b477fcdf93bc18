package sat

import (
	"context"
	"math/rand"

	"github.com/latticeforge/bop/core"
)

// Solver is the concrete CDCL backend implementing core.SatSolver.
// Generalized from the teacher's CDCLSolver (sat/cdcl.go): the same
// propagate/analyze/backjump/restart/reduce loop shape, rewritten
// around dense int32 VariableIndex-based literals instead of
// string-keyed ones, and extended with assumption-based solving
// (EnqueueDecisionAndBackjumpOnConflict, GetLastIncompatibleDecisions)
// and a pseudo-Boolean watched-sum propagator for linear constraints.
type Solver struct {
	numVars int

	trail *trail
	prop  *propagator
	vsids *vsids
	an    *analyzer
	rs    *restartSchedule

	clauses        []*clause
	learnedClauses []*clause

	rng *rand.Rand

	// Search knobs, snapshotted/restored by Save/RestoreParameters.
	randomPolarityRatio float64
	randomBranchesRatio float64
	preferredOrder      int
	polarityStrategy    int
	phaseSaving         bool
	assignmentPref      []int8

	assumptionLevelOf map[int]core.Lit // decision level -> the assumption literal decided there
	lastCore          []core.Lit

	stats SolverStatistics

	conflictsSinceRestart int64
}

// NewSolver builds a solver with numVars variables (indices 0..numVars-1
// already allocated).
func NewSolver(numVars int) *Solver {
	s := &Solver{
		numVars:             numVars,
		trail:               newTrail(numVars),
		prop:                newPropagator(numVars),
		vsids:               newVSIDS(numVars),
		an:                  newAnalyzer(numVars),
		rs:                  newRestartSchedule(100),
		rng:                 rand.New(rand.NewSource(1)),
		assignmentPref:      make([]int8, numVars),
		assumptionLevelOf:   make(map[int]core.Lit),
		randomPolarityRatio: 0,
		randomBranchesRatio: 0,
		phaseSaving:         true,
	}
	return s
}

// NumVariables returns the current variable count.
func (s *Solver) NumVariables() int { return s.numVars }

// NewVariables grows the solver by n fresh variables and returns the
// index of the first one added.
func (s *Solver) NewVariables(n int) core.VariableIndex {
	first := core.VariableIndex(s.numVars)
	s.numVars += n
	s.trail.grow(s.numVars)
	s.prop.growTo(s.numVars)
	s.vsids.grow(s.numVars)
	s.an.grow(s.numVars)
	grown := make([]int8, s.numVars)
	copy(grown, s.assignmentPref)
	s.assignmentPref = grown
	return first
}

// AddUnitClause asserts lit at the root level.
func (s *Solver) AddUnitClause(lit core.Lit) error {
	switch s.trail.valueOf(lit) {
	case assignedTrue:
		return nil
	case assignedFalse:
		return core.NewError("Solver.AddUnitClause", "conflicts with an existing root assignment")
	}
	s.prop.enqueue(s.trail, lit, nil)
	if c := s.prop.propagate(s.trail, &s.stats); c != nil {
		return core.NewError("Solver.AddUnitClause", "unit propagation reaches a root-level conflict")
	}
	return nil
}

// AddBinaryClause asserts (a or b) at the root level.
func (s *Solver) AddBinaryClause(a, b core.Lit) error {
	return s.AddClause(a, b)
}

// AddClause asserts an arbitrary disjunction at the root level.
func (s *Solver) AddClause(lits ...core.Lit) error {
	if len(lits) == 0 {
		return core.NewError("Solver.AddClause", "empty clause is trivially unsatisfiable")
	}
	if len(lits) == 1 {
		return s.AddUnitClause(lits[0])
	}
	cp := append([]core.Lit(nil), lits...)
	cl := &clause{lits: cp}
	s.clauses = append(s.clauses, cl)
	s.prop.addClauseWatches(cl)
	if c := s.prop.propagate(s.trail, &s.stats); c != nil {
		return core.NewError("Solver.AddClause", "unit propagation reaches a root-level conflict")
	}
	return nil
}

// AddLinearConstraint asserts lb <= sum(coeff_i * lit_i) <= ub at the
// root level.
func (s *Solver) AddLinearConstraint(lits []core.Lit, coeffs []int64, lb, ub *int64) error {
	if len(lits) != len(coeffs) {
		core.PanicInvariant("Solver.AddLinearConstraint", "literal/coefficient length mismatch")
	}
	pb := &pbConstraint{
		lits:  append([]core.Lit(nil), lits...),
		coefs: append([]int64(nil), coeffs...),
		lb:    lb,
		ub:    ub,
	}
	s.prop.addPB(pb)
	for _, l := range lits {
		if c := s.prop.propagatePB(s.trail, l); c != nil {
			return core.NewError("Solver.AddLinearConstraint", "propagation reaches a root-level conflict")
		}
	}
	return nil
}

// Value reports the current binding of v and whether it is assigned.
func (s *Solver) Value(v core.VariableIndex) (value bool, assigned bool) {
	switch s.trail.state[v] {
	case assignedTrue:
		return true, true
	case assignedFalse:
		return false, true
	default:
		return false, false
	}
}

// CurrentDecisionLevel returns the solver's current level.
func (s *Solver) CurrentDecisionLevel() int { return s.trail.currentLevel() }

// Backtrack undoes decisions back to the given level.
func (s *Solver) Backtrack(level int) {
	s.trail.backtrackTo(level)
	s.prop.resetQueue()
	for l := range s.assumptionLevelOf {
		if l > level {
			delete(s.assumptionLevelOf, l)
		}
	}
}

// SaveParameters snapshots the mutable search knobs.
func (s *Solver) SaveParameters() core.SatParameters {
	return core.SatParameters{
		RandomPolarityRatio: s.randomPolarityRatio,
		RandomBranchesRatio: s.randomBranchesRatio,
		PreferredOrder:      s.preferredOrder,
		PolarityStrategy:    s.polarityStrategy,
		PhaseSaving:         s.phaseSaving,
		AssignmentPref:      append([]int8(nil), s.assignmentPref...),
	}
}

// RestoreParameters restores a snapshot taken by SaveParameters.
func (s *Solver) RestoreParameters(p core.SatParameters) {
	s.randomPolarityRatio = p.RandomPolarityRatio
	s.randomBranchesRatio = p.RandomBranchesRatio
	s.preferredOrder = p.PreferredOrder
	s.polarityStrategy = p.PolarityStrategy
	s.phaseSaving = p.PhaseSaving
	if p.AssignmentPref != nil {
		s.assignmentPref = append([]int8(nil), p.AssignmentPref...)
	}
}

// SetAssignmentPreference biases the decision heuristic.
func (s *Solver) SetAssignmentPreference(pref []int8) {
	copy(s.assignmentPref, pref)
}

// SetRandomPolarityRatio configures how often a decision's polarity is
// randomized instead of following the heuristic/phase cache.
func (s *Solver) SetRandomPolarityRatio(ratio float64) { s.randomPolarityRatio = ratio }

// SetRandomBranchesRatio configures how often the decision *variable*
// itself is chosen uniformly at random instead of by activity.
func (s *Solver) SetRandomBranchesRatio(ratio float64) { s.randomBranchesRatio = ratio }

// SetPreferredVariableOrder and SetPolarityStrategy let the randomized
// first-solution generator (spec.md SS4.10) pick from the solver's
// small enum of branching/polarity strategies.
func (s *Solver) SetPreferredVariableOrder(order int)   { s.preferredOrder = order }
func (s *Solver) SetPolarityStrategy(strategy int)      { s.polarityStrategy = strategy }
func (s *Solver) SetPhaseSaving(enabled bool)           { s.phaseSaving = enabled }

// DeterministicTime returns the running deterministic-time counter.
func (s *Solver) DeterministicTime() float64 { return s.stats.DeterministicTime }

// Statistics returns a copy of the solver's running counters.
func (s *Solver) Statistics() SolverStatistics { return s.stats }

// GetLastIncompatibleDecisions returns the unsat core from the most
// recent assumption-UNSAT Solve call.
func (s *Solver) GetLastIncompatibleDecisions() []core.Lit {
	return append([]core.Lit(nil), s.lastCore...)
}

// decide picks the next branching literal: preferredOrder/assignmentPref
// honored first (kUserGuided/kLpGuided/kObjectiveGuided encode their
// bias through SetAssignmentPreference before calling Solve), falling
// back to VSIDS activity, with randomPolarityRatio/randomBranchesRatio
// occasionally overriding both (spec.md SS4.10's "randomizing the
// decision heuristic").
// Variable order strategies selectable via SetPreferredVariableOrder.
const (
	OrderActivity   = 0 // VSIDS activity, highest first (default)
	OrderAscending  = 1 // lowest VariableIndex first
	OrderDescending = 2 // highest VariableIndex first
)

// Polarity strategies selectable via SetPolarityStrategy.
const (
	PolarityPhaseSaved = 0 // last value held, or false on first decision (default)
	PolarityTrue       = 1 // always try true first
	PolarityFalse      = 2 // always try false first
)

func (s *Solver) decide() core.Lit {
	var v core.VariableIndex
	switch {
	case s.randomBranchesRatio > 0 && s.rng.Float64() < s.randomBranchesRatio:
		v = s.randomUnassigned()
	case s.preferredOrder == OrderAscending:
		v = s.firstUnassigned(1)
	case s.preferredOrder == OrderDescending:
		v = s.firstUnassigned(-1)
	default:
		v = s.vsids.pickVariable(s.trail)
	}
	if v == core.InvalidVariable {
		return 0
	}

	var polarity bool
	switch s.polarityStrategy {
	case PolarityTrue:
		polarity = true
	case PolarityFalse:
		polarity = false
	default:
		if s.phaseSaving {
			polarity = s.vsids.preferredPolarity(v)
		}
	}
	if pref := s.assignmentPref[v]; pref != 0 {
		polarity = pref > 0
	}
	if s.randomPolarityRatio > 0 && s.rng.Float64() < s.randomPolarityRatio {
		polarity = s.rng.Intn(2) == 1
	}
	return core.NewLit(v, polarity)
}

// firstUnassigned scans variable indices in the given direction
// (+1 ascending, -1 descending) for OrderAscending/OrderDescending.
func (s *Solver) firstUnassigned(step int) core.VariableIndex {
	if step > 0 {
		for v := 0; v < s.numVars; v++ {
			if !s.trail.isAssigned(core.VariableIndex(v)) {
				return core.VariableIndex(v)
			}
		}
		return core.InvalidVariable
	}
	for v := s.numVars - 1; v >= 0; v-- {
		if !s.trail.isAssigned(core.VariableIndex(v)) {
			return core.VariableIndex(v)
		}
	}
	return core.InvalidVariable
}

func (s *Solver) randomUnassigned() core.VariableIndex {
	candidates := make([]core.VariableIndex, 0, s.numVars)
	for v := 0; v < s.numVars; v++ {
		if !s.trail.isAssigned(core.VariableIndex(v)) {
			candidates = append(candidates, core.VariableIndex(v))
		}
	}
	if len(candidates) == 0 {
		return core.InvalidVariable
	}
	return candidates[s.rng.Intn(len(candidates))]
}

// Solve runs CDCL search under assumptions and budget.
func (s *Solver) Solve(ctx context.Context, assumptions []core.Lit, budget core.Budget) core.Status {
	s.lastCore = nil
	startConflicts := s.stats.Conflicts

	if c := s.prop.propagate(s.trail, &s.stats); c != nil {
		return core.StatusInfeasible
	}

	for _, lit := range assumptions {
		if err := ctx.Err(); err != nil {
			return core.StatusLimitReached
		}
		switch s.trail.valueOf(lit) {
		case assignedTrue:
			continue
		case assignedFalse:
			s.lastCore = s.extractCore(assumptions)
			return core.StatusAbort
		}
		s.trail.pushLevel()
		s.assumptionLevelOf[s.trail.currentLevel()] = lit
		s.prop.enqueue(s.trail, lit, nil)
		if c := s.prop.propagate(s.trail, &s.stats); c != nil {
			backjump, unsatCore := s.resolveAssumptionConflict(c, assumptions)
			if unsatCore != nil {
				s.lastCore = unsatCore
				return core.StatusAbort
			}
			s.trail.backtrackTo(backjump)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return core.StatusLimitReached
		}
		if budget.MaxConflicts > 0 && s.stats.Conflicts-startConflicts >= int64(budget.MaxConflicts) {
			return core.StatusLimitReached
		}
		if budget.DeterministicLimit > 0 && s.stats.DeterministicTime >= budget.DeterministicLimit {
			return core.StatusLimitReached
		}

		c := s.prop.propagate(s.trail, &s.stats)
		if c != nil {
			s.stats.Conflicts++
			s.conflictsSinceRestart++
			s.stats.DeterministicTime += 1e-6

			if s.trail.currentLevel() == 0 {
				return core.StatusInfeasible
			}
			learned, backjump, lbd := s.an.learn(s.trail, c.cl)
			if learned == nil {
				if a, ok := s.assumptionsExhausted(); ok {
					s.lastCore = a
					return core.StatusAbort
				}
				return core.StatusInfeasible
			}
			for _, lit := range learned {
				s.vsids.bump(lit.Var())
			}
			s.vsids.decayActivity()

			if backjump < len(assumptions) && s.assumedBelow(backjump) {
				s.lastCore = s.extractCore(assumptions)
				return core.StatusAbort
			}

			s.trail.backtrackTo(backjump)
			lc := &clause{lits: learned, learned: true, lbd: lbd}
			s.learnedClauses = append(s.learnedClauses, lc)
			s.stats.LearnedClauses++
			if len(lc.lits) == 1 {
				s.prop.enqueue(s.trail, lc.lits[0], nil)
			} else {
				s.prop.addClauseWatches(lc)
				s.prop.enqueue(s.trail, lc.lits[0], lc)
			}
			s.maybeReduceLearnedClauses()
			continue
		}

		if s.conflictsSinceRestart >= 0 && s.rs.due(s.conflictsSinceRestart) {
			s.stats.Restarts++
			s.conflictsSinceRestart = 0
			s.rs.advance()
			s.trail.backtrackTo(len(assumptions))
			continue
		}

		lit := s.decide()
		if lit == 0 {
			return core.StatusSolutionFound
		}
		s.stats.Decisions++
		s.trail.pushLevel()
		s.vsids.setPhase(lit.Var(), lit.IsPositive())
		s.prop.enqueue(s.trail, lit, nil)
	}
}

// assumedBelow reports whether any assumption was decided at or above
// the given backjump level, meaning the learned clause contradicts an
// assumption rather than an ordinary decision.
func (s *Solver) assumedBelow(level int) bool {
	for lvl := range s.assumptionLevelOf {
		if lvl > level {
			return true
		}
	}
	return false
}

func (s *Solver) assumptionsExhausted() ([]core.Lit, bool) {
	if len(s.assumptionLevelOf) == 0 {
		return nil, false
	}
	lits := make([]core.Lit, 0, len(s.assumptionLevelOf))
	for _, l := range s.assumptionLevelOf {
		lits = append(lits, l)
	}
	return lits, true
}

// resolveAssumptionConflict analyzes a conflict hit while still
// pushing assumption decisions; returns the unsat core if the conflict
// is unresolvable without retracting an assumption, or the level to
// backtrack to otherwise.
func (s *Solver) resolveAssumptionConflict(c *conflict, assumptions []core.Lit) (int, []core.Lit) {
	learned, backjump, _ := s.an.learn(s.trail, c.cl)
	if learned == nil || s.assumedBelow(backjump) {
		return 0, s.extractCore(assumptions)
	}
	return backjump, nil
}

// extractCore returns the subset of assumptions currently on the trail
// (conservative: the whole assumption prefix, since this generalized
// propagator does not track per-literal minimality).
func (s *Solver) extractCore(assumptions []core.Lit) []core.Lit {
	var touched []core.Lit
	for _, l := range assumptions {
		if s.trail.valueOf(l) != unassigned {
			touched = append(touched, l)
		}
	}
	if len(touched) == 0 {
		return append([]core.Lit(nil), assumptions...)
	}
	return touched
}

// maybeReduceLearnedClauses, once the learned set grows past a size tied
// to the original clause count, keeps every glue clause (LBD <= 2) and
// each other learned clause with probability 1/2, dropping the rest from
// the learned list — the teacher's ActivityBasedDeletion-by-threshold
// idiom adapted to LBD tiers. Dropped clauses are not detached from the
// watch lists.
func (s *Solver) maybeReduceLearnedClauses() {
	limit := 2000 + 300*len(s.clauses)
	if len(s.learnedClauses) <= limit {
		return
	}
	kept := s.learnedClauses[:0]
	for _, cl := range s.learnedClauses {
		if cl.lbd <= 2 || s.rng.Float64() < 0.5 {
			kept = append(kept, cl)
		} else {
			s.stats.DeletedClauses++
		}
	}
	s.learnedClauses = kept
}

// EnqueueDecisionAndBackjumpOnConflict pushes lit as a new decision and
// propagates it, letting CDCL backjump on conflict.
func (s *Solver) EnqueueDecisionAndBackjumpOnConflict(lit core.Lit) int {
	startLevel := s.trail.currentLevel()
	if s.trail.valueOf(lit) == assignedTrue {
		return 0
	}
	s.trail.pushLevel()
	s.prop.enqueue(s.trail, lit, nil)
	c := s.prop.propagate(s.trail, &s.stats)
	if c == nil {
		return 0
	}
	s.stats.Conflicts++
	learned, backjump, lbd := s.an.learn(s.trail, c.cl)
	if learned == nil {
		s.trail.backtrackTo(0)
		return startLevel + 1
	}
	s.trail.backtrackTo(backjump)
	lc := &clause{lits: learned, learned: true, lbd: lbd}
	s.learnedClauses = append(s.learnedClauses, lc)
	if len(lc.lits) == 1 {
		s.prop.enqueue(s.trail, lc.lits[0], nil)
	} else {
		s.prop.addClauseWatches(lc)
		s.prop.enqueue(s.trail, lc.lits[0], lc)
	}
	return startLevel - backjump + 1
}

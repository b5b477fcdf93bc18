package sat

import (
	"sort"

	"github.com/latticeforge/bop/adaptive"
	"github.com/latticeforge/bop/core"
)

// vsids is a variable-activity decision heuristic, generalized from
// the teacher's VSIDSHeuristic (sat/heuristics.go) to slice-indexed
// activity scores (one float64 per VariableIndex instead of a
// map[string]float64) plus a phase cache for polarity saving. The
// teacher's LRB/anti-aging blend is dropped: spec.md's guided
// first-solution generators already bias polarity explicitly
// (kLpGuided/kObjectiveGuided/kUserGuided), so a second independent
// scoring signal would only fight the caller's preference rather than
// help it.
type vsids struct {
	activity  []float64
	increment float64
	decay     float64

	phaseCache []bool // polarity last chosen/forced for each variable
	hasPhase   []bool

	order []core.VariableIndex // heap-free: re-sorted lazily, see pickVariable
	dirty bool
}

func newVSIDS(numVars int) *vsids {
	v := &vsids{
		activity:   make([]float64, numVars),
		increment:  1.0,
		decay:      0.95,
		phaseCache: make([]bool, numVars),
		hasPhase:   make([]bool, numVars),
		dirty:      true,
	}
	v.order = make([]core.VariableIndex, numVars)
	for i := range v.order {
		v.order[i] = core.VariableIndex(i)
	}
	return v
}

func (v *vsids) grow(numVars int) {
	old := len(v.activity)
	if numVars <= old {
		return
	}
	v.activity = append(v.activity, make([]float64, numVars-old)...)
	v.phaseCache = append(v.phaseCache, make([]bool, numVars-old)...)
	v.hasPhase = append(v.hasPhase, make([]bool, numVars-old)...)
	for i := old; i < numVars; i++ {
		v.order = append(v.order, core.VariableIndex(i))
	}
	v.dirty = true
}

// bump increases a variable's activity after it participates in a
// learned clause, rescaling every activity (and the increment) down if
// it would overflow a reasonable float64 range — the teacher's
// "varActivityInc"/decay idiom, generalized.
func (v *vsids) bump(vr core.VariableIndex) {
	v.activity[vr] += v.increment
	if v.activity[vr] > 1e100 {
		for i := range v.activity {
			v.activity[i] *= 1e-100
		}
		v.increment *= 1e-100
	}
	v.dirty = true
}

// decayActivity shrinks the future bump size, the usual VSIDS
// "increment *= 1/decay" trick applied once per conflict.
func (v *vsids) decayActivity() {
	v.increment /= v.decay
}

func (v *vsids) setPhase(vr core.VariableIndex, positive bool) {
	v.phaseCache[vr] = positive
	v.hasPhase[vr] = true
}

// pickVariable returns the highest-activity unassigned variable, or
// core.InvalidVariable if every variable is assigned. The candidate
// list is re-sorted only when activity has changed since the last
// pick, trading a little staleness for not re-sorting every decision.
func (v *vsids) pickVariable(t *trail) core.VariableIndex {
	if v.dirty {
		sort.Slice(v.order, func(i, j int) bool { return v.activity[v.order[i]] > v.activity[v.order[j]] })
		v.dirty = false
	}
	for _, vr := range v.order {
		if !t.isAssigned(vr) {
			return vr
		}
	}
	return core.InvalidVariable
}

// preferredPolarity decides which sign to assign a freshly-decided
// variable, honoring phase saving (the last value it held) over a
// cold-start default of false (0), matching the teacher's phaseCache.
func (v *vsids) preferredPolarity(vr core.VariableIndex) bool {
	if v.hasPhase[vr] {
		return v.phaseCache[vr]
	}
	return false
}

// restartSchedule paces CDCL restarts with the Luby sequence, reusing
// package adaptive's LubyUnit rather than re-deriving the recursive
// formula a second time (the teacher's own
// heuristics_advanced.go/LubyRestartStrategy does re-derive it, but
// having a second, independently-grounded implementation would only
// invite the two to drift apart).
type restartSchedule struct {
	unit       int
	base       int
	lubyIndex  int
	sinceStart int64
}

func newRestartSchedule(base int) *restartSchedule {
	return &restartSchedule{base: base, lubyIndex: 1, unit: adaptive.LubyUnit(1)}
}

// due reports whether conflictsSinceRestart has reached this run's
// quota; the caller is expected to call advance() right after
// restarting.
func (r *restartSchedule) due(conflictsSinceRestart int64) bool {
	return conflictsSinceRestart >= int64(r.unit*r.base)
}

func (r *restartSchedule) advance() {
	r.lubyIndex++
	r.unit = adaptive.LubyUnit(r.lubyIndex)
}

package sat

import "github.com/latticeforge/bop/core"

// trail is the decision/propagation history, generalized from the
// teacher's DecisionTrailImpl (sat/trail.go): a chronological slice of
// assigned literals plus O(1) per-variable lookup of level and reason.
// Because BOP variables are a dense [0, n) range, the teacher's
// varToIndex/reasons/levels maps become plain slices indexed by
// VariableIndex.
type trail struct {
	lits []core.Lit // chronological order of assigned literals

	state   []assignState
	level   []int32
	reason  []*clause // nil for decisions; a pbConstraint-forced literal carries an explanation clause
	trailAt []int32   // index into lits where each variable was assigned, -1 if unassigned

	levelStarts []int32 // levelStarts[l] = index into lits where level l began
	current     int32
}

func newTrail(numVars int) *trail {
	t := &trail{
		state:       make([]assignState, numVars),
		level:       make([]int32, numVars),
		reason:      make([]*clause, numVars),
		trailAt:     make([]int32, numVars),
		levelStarts: []int32{0},
	}
	for i := range t.trailAt {
		t.trailAt[i] = -1
	}
	return t
}

func (t *trail) grow(numVars int) {
	old := len(t.state)
	if numVars <= old {
		return
	}
	t.state = append(t.state, make([]assignState, numVars-old)...)
	t.level = append(t.level, make([]int32, numVars-old)...)
	t.reason = append(t.reason, make([]*clause, numVars-old)...)
	grownAt := append(t.trailAt, make([]int32, numVars-old)...)
	for i := old; i < numVars; i++ {
		grownAt[i] = -1
	}
	t.trailAt = grownAt
}

func (t *trail) valueOf(l core.Lit) assignState {
	s := t.state[l.Var()]
	if s == unassigned {
		return unassigned
	}
	positiveTrue := s == assignedTrue
	if l.IsPositive() == positiveTrue {
		return assignedTrue
	}
	return assignedFalse
}

func (t *trail) isAssigned(v core.VariableIndex) bool { return t.state[v] != unassigned }

func (t *trail) currentLevel() int { return int(t.current) }

// assign records lit as true at the current decision level with the
// given reason (nil for a decision).
func (t *trail) assign(lit core.Lit, reason *clause) {
	v := lit.Var()
	if lit.IsPositive() {
		t.state[v] = assignedTrue
	} else {
		t.state[v] = assignedFalse
	}
	t.level[v] = t.current
	t.reason[v] = reason
	t.trailAt[v] = int32(len(t.lits))
	t.lits = append(t.lits, lit)
}

// pushLevel opens a new decision level, recording where it begins.
func (t *trail) pushLevel() {
	t.current++
	t.levelStarts = append(t.levelStarts, int32(len(t.lits)))
}

// backtrackTo undoes every assignment made at a level above target,
// returning the trail to exactly the state it had when level target
// began.
func (t *trail) backtrackTo(target int) {
	if target >= t.currentLevel() {
		return
	}
	cut := t.levelStarts[target+1]
	for i := len(t.lits) - 1; i >= int(cut); i-- {
		v := t.lits[i].Var()
		t.state[v] = unassigned
		t.reason[v] = nil
		t.trailAt[v] = -1
	}
	t.lits = t.lits[:cut]
	t.levelStarts = t.levelStarts[:target+1]
	t.current = int32(target)
}

// levelOf returns the decision level v was assigned at, or -1 if
// unassigned.
func (t *trail) levelOf(v core.VariableIndex) int {
	if t.state[v] == unassigned {
		return -1
	}
	return int(t.level[v])
}

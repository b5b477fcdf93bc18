package adaptive

import "math/bits"

// LubyUnit returns the i-th term (1-indexed) of the Luby sequence
// 1,1,2,1,1,2,4,1,1,2,1,1,2,4,8,... used to pace restarts and LNS
// neighborhood sizes with good worst-case behavior.
func LubyUnit(i int) int {
	if i < 1 {
		i = 1
	}
	for k := 1; ; k++ {
		if i == (1<<k)-1 {
			return 1 << (k - 1)
		}
		if i < (1<<k)-1 {
			return LubyUnit(i - (1 << (k - 1)) + 1)
		}
	}
}

// LubyAdaptiveParameter keeps one Parameter per power-of-two "run
// length" class and reads back the current class's value as the LNS
// difficulty for the current Luby step, per spec.md SS4.7: luby_value =
// luby_unit(luby_id) * 2^luby_boost, and the class is
// log2(luby_value) (see classIndex).
type LubyAdaptiveParameter struct {
	lubyID    int
	lubyBoost int
	classes   map[int]*Parameter
	newParam  func() *Parameter
}

// NewLubyAdaptiveParameter builds a driver; newParam constructs a fresh
// Parameter (with the caller's chosen starting value/step/decay) the
// first time a given run-length class is seen.
func NewLubyAdaptiveParameter(newParam func() *Parameter) *LubyAdaptiveParameter {
	return &LubyAdaptiveParameter{
		classes:  make(map[int]*Parameter),
		newParam: newParam,
	}
}

// classIndex maps a Luby run length to a small class id (its log2,
// clamped to at least 0).
func classIndex(lubyValue int) int {
	idx := bits.Len(uint(lubyValue)) - 1
	if idx < 0 {
		return 0
	}
	return idx
}

// Step advances the Luby counter by one and returns the current class's
// Parameter, allocating it on first use.
func (l *LubyAdaptiveParameter) Step() (difficulty *Parameter, lubyValue int) {
	l.lubyID++
	lubyValue = LubyUnit(l.lubyID) << l.lubyBoost
	idx := classIndex(lubyValue)
	p, ok := l.classes[idx]
	if !ok {
		p = l.newParam()
		l.classes[idx] = p
	}
	return p, lubyValue
}

// BoostRunLength increases luby_boost, shifting every future Luby value
// up by a power of two; used when the driver wants longer, rarer runs.
func (l *LubyAdaptiveParameter) BoostRunLength() { l.lubyBoost++ }

// Package adaptive implements the bounded-real-valued parameters LNS
// uses to pace neighborhood difficulty. Grounded on the teacher's
// decaying-activity idiom (sat/heuristics.go's varActivityInc/decay):
// a value that grows or shrinks by a step that itself decays toward a
// floor, so the parameter converges rather than oscillating forever.
package adaptive

// Parameter is a value in [0,1] that increases or decreases on demand by
// a step that shrinks geometrically after every update, floored so it
// never stalls completely.
type Parameter struct {
	value       float64
	increment   float64
	decayFactor float64
	minIncrement float64
}

// NewParameter builds a parameter starting at initialValue, stepping by
// initialIncrement and decaying that step by decayFactor on every
// Increase/Decrease call, never below minIncrement.
func NewParameter(initialValue, initialIncrement, decayFactor, minIncrement float64) *Parameter {
	return &Parameter{
		value:        clamp01(initialValue),
		increment:    initialIncrement,
		decayFactor:  decayFactor,
		minIncrement: minIncrement,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Value returns the current parameter value.
func (p *Parameter) Value() float64 { return p.value }

// Increase moves the value toward 1 by the current increment, then
// decays the increment.
func (p *Parameter) Increase() {
	p.value = clamp01(p.value + p.increment)
	p.decay()
}

// Decrease moves the value toward 0 by the current increment, then
// decays the increment.
func (p *Parameter) Decrease() {
	p.value = clamp01(p.value - p.increment)
	p.decay()
}

func (p *Parameter) decay() {
	p.increment *= p.decayFactor
	if p.increment < p.minIncrement {
		p.increment = p.minIncrement
	}
}

// Reset restores the parameter to value with a fresh increment,
// discarding any decay accumulated so far.
func (p *Parameter) Reset(value, increment float64) {
	p.value = clamp01(value)
	p.increment = increment
}

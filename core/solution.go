package core

// Solution is a Boolean vector together with a lazily recomputed cost and
// feasibility flag. Grounded on the teacher's small-value-type style
// (classical.BitwiseInt): a thin wrapper with an explicit invalidate-on-write
// contract rather than hidden recomputation on every read.
type Solution struct {
	values      []bool
	cost        int64
	isFeasible  bool
	dirty       bool
	problem     *Problem
}

// NewSolution allocates a solution of the given size bound to problem for
// cost/feasibility recomputation. All values start false.
func NewSolution(problem *Problem) *Solution {
	return &Solution{
		values:  make([]bool, problem.NumVariables),
		dirty:   true,
		problem: problem,
	}
}

// NewSolutionFromValues copies an existing assignment.
func NewSolutionFromValues(problem *Problem, values []bool) *Solution {
	s := &Solution{
		values:  make([]bool, len(values)),
		dirty:   true,
		problem: problem,
	}
	copy(s.values, values)
	return s
}

// Clone returns an independent copy.
func (s *Solution) Clone() *Solution {
	c := &Solution{
		values:     append([]bool(nil), s.values...),
		cost:       s.cost,
		isFeasible: s.isFeasible,
		dirty:      s.dirty,
		problem:    s.problem,
	}
	return c
}

// Value returns the current binding of v.
func (s *Solution) Value(v VariableIndex) bool { return s.values[v] }

// Values returns the full backing vector; callers must not mutate it.
func (s *Solution) Values() []bool { return s.values }

// Len returns the number of variables.
func (s *Solution) Len() int { return len(s.values) }

// SetValue rebinds v and invalidates the cached cost/feasibility.
func (s *Solution) SetValue(v VariableIndex, val bool) {
	if s.values[v] == val {
		return
	}
	s.values[v] = val
	s.dirty = true
}

func (s *Solution) recompute() {
	if !s.dirty {
		return
	}
	var cost int64
	obj := s.problem.Objective
	for i, v := range obj.Literals {
		if s.values[v] {
			cost += obj.Coefficients[i]
		}
	}
	s.cost = cost

	feasible := true
	for _, c := range s.problem.Constraints {
		var sum int64
		for i, lit := range c.Literals {
			bound := s.values[lit.Var()]
			if !lit.IsPositive() {
				bound = !bound
			}
			if bound {
				sum += c.Coefficients[i]
			}
		}
		if c.LowerBound != nil && sum < *c.LowerBound {
			feasible = false
			break
		}
		if c.UpperBound != nil && sum > *c.UpperBound {
			feasible = false
			break
		}
	}
	s.isFeasible = feasible
	s.dirty = false
}

// Cost returns c^T x (unscaled, without offset). Only valid terms whose
// variable is true are visited, per spec.md SS4.2.
func (s *Solution) Cost() int64 {
	s.recompute()
	return s.cost
}

// IsFeasible reports whether every constraint of the bound Problem holds.
func (s *Solution) IsFeasible() bool {
	s.recompute()
	return s.isFeasible
}

// ScaledCost returns (cost+offset)*scalingFactor, the value surfaced to
// callers of bop.Solve.
func (s *Solution) ScaledCost() float64 {
	obj := s.problem.Objective
	return float64(s.Cost()+obj.Offset) * obj.ScalingFactor
}

// Less implements the comparison spec.md SS3 defines: feasible beats
// infeasible, and among equally-feasible solutions the lower cost wins.
func (s *Solution) Less(other *Solution) bool {
	sf, of := s.IsFeasible(), other.IsFeasible()
	if sf != of {
		return sf
	}
	return s.Cost() < other.Cost()
}

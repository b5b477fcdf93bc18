package state

import "github.com/latticeforge/bop/core"

// LearnedInfo is the message an optimizer hands back to the driver after
// one Optimize call (spec.md SS4.1). A fresh LearnedInfo is required at
// the start of every call; optimizers must Clear() it on entry rather
// than reuse stale contents.
type LearnedInfo struct {
	FixedLiterals []core.Lit
	Solution      *core.Solution // possibly infeasible, nil if none produced
	LowerBound    int64          // defaults to negative-infinity sentinel, see NoLowerBound
	LPValues      []float64      // empty or len == problem.NumVariables
	BinaryClauses [][2]core.Lit

	// Status lets an optimizer that already knows it is done short-
	// circuit the state machine without having exhibited a witnessing
	// solution (spec.md SS4.1 "status forwarding").
	ReportsOptimal    bool
	ReportsInfeasible bool
}

// NoLowerBound is the "-infinity" sentinel LearnedInfo.LowerBound
// defaults to.
const NoLowerBound = int64(-1) << 62

// NewLearnedInfo returns a zeroed LearnedInfo ready for one Optimize
// call.
func NewLearnedInfo() *LearnedInfo {
	return &LearnedInfo{LowerBound: NoLowerBound}
}

// Clear resets every field in place so the same struct can be reused
// across Optimize calls without allocating; this is what BopSolver does
// between portfolio iterations.
func (li *LearnedInfo) Clear() {
	li.FixedLiterals = li.FixedLiterals[:0]
	li.Solution = nil
	li.LowerBound = NoLowerBound
	li.LPValues = nil
	li.BinaryClauses = li.BinaryClauses[:0]
	li.ReportsOptimal = false
	li.ReportsInfeasible = false
}

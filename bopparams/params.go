// Package bopparams holds the BopParameters tuning message from
// spec.md SS6: tolerances, per-optimizer conflict/time budgets, and the
// flags controlling which optimizer variants participate in a solve. It
// has no dependencies so every other package can import it without risk
// of a cycle.
package bopparams

import "time"

// AssignmentPreference selects how a guided first-solution generator
// biases the underlying SAT solver's decisions (spec.md SS4.10).
type AssignmentPreference int

const (
	NotGuided AssignmentPreference = iota
	LPGuided
	ObjectiveGuided
	UserGuided
)

// Parameters is the BopParameters message of spec.md SS6.
type Parameters struct {
	// Tolerances.
	RelativeGapLimit float64

	// Per-optimizer budgets.
	GuidedSatConflictsChunk                  int
	MaxNumberOfConflictsInRandomLns          int
	MaxNumberOfConflictsInRandomSolutionGen  int
	MaxNumberOfConflictsForQuickCheck        int
	MaxNumDecisionsInLS                      int
	NumRelaxedVars                           int
	MaxNumBrokenConstraintsInLS              int

	// LP behavior.
	LPMaxDeterministicTime          float64
	UseLPStrongBranching            bool
	UseLearnedBinaryClausesInLP     bool
	MaxLPSolveForFeasibilityProblems int

	// LS options.
	UseTranspositionTableInLS       bool
	UsePotentialOneFlipRepairsInLS  bool

	// Portfolio behavior.
	MaxNumberOfConsecutiveFailingOptimizerCalls int
	NumberOfSolvers                             int

	// Randomness.
	RandomSeed int64

	// Wall-clock budget for the whole Solve call (0 = unbounded).
	MaxTimeInSeconds time.Duration
}

// DefaultParameters returns the BopParameters defaults used when the
// caller does not override them, matching the magnitudes spec.md's
// components assume (Luby-scaled conflict chunks, a tight quick-check
// budget, a conservative LS depth).
func DefaultParameters() *Parameters {
	return &Parameters{
		RelativeGapLimit:                         1e-4,
		GuidedSatConflictsChunk:                  1000,
		MaxNumberOfConflictsInRandomLns:           200,
		MaxNumberOfConflictsInRandomSolutionGen:   2000,
		MaxNumberOfConflictsForQuickCheck:         10,
		MaxNumDecisionsInLS:                       4,
		NumRelaxedVars:                            10,
		MaxNumBrokenConstraintsInLS:               100,
		LPMaxDeterministicTime:                    5,
		UseLPStrongBranching:                      false,
		UseLearnedBinaryClausesInLP:                true,
		MaxLPSolveForFeasibilityProblems:          10,
		UseTranspositionTableInLS:                  true,
		UsePotentialOneFlipRepairsInLS:              true,
		MaxNumberOfConsecutiveFailingOptimizerCalls: 50,
		NumberOfSolvers:                             1,
		RandomSeed:                                  1,
		MaxTimeInSeconds:                            0,
	}
}

// Package bop is the public façade of the pseudo-Boolean optimization
// engine: a Problem in, a Solution out. Every concrete strategy
// (core-guided search, LP relaxation, LNS, local search, first-solution
// generators) lives in its own importable sub-package so advanced
// callers can assemble a custom BopSolver directly; this package only
// wires the default portfolio together.
package bop

import (
	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
)

// Re-exported data model, so callers never need to import package core
// or bopparams directly for the common path.
type (
	Problem     = core.Problem
	Constraint  = core.Constraint
	Objective   = core.Objective
	Solution    = core.Solution
	SolveStatus = core.SolveStatus
	Parameters  = bopparams.Parameters
)

// NewLit builds the literal for variable v (0-indexed) with the given
// polarity (true = positive).
func NewLit(v core.VariableIndex, positive bool) core.Lit { return core.NewLit(v, positive) }

// DefaultParameters returns the tuning defaults every BopSolver uses
// when the caller passes nil.
func DefaultParameters() *Parameters { return bopparams.DefaultParameters() }

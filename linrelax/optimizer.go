// Package linrelax implements LinearRelaxation (spec.md §4.10): it
// resolves the problem's LP relaxation on every call, reporting an
// all-integral optimum immediately and otherwise recording the
// fractional primal vector and a rounded-up lower bound for other
// optimizers to consume.
package linrelax

import (
	"context"
	"math"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/state"
)

const integralTolerance = 1e-6

// Optimizer is LinearRelaxation. It holds no solver-side state across
// calls — every Optimize rebuilds the relaxation from ps's current fixed
// variables and resolves it from scratch, since strengthening the LP
// incrementally would need a warm-startable core.LPSolver this package's
// collaborator interface doesn't offer.
type Optimizer struct {
	solver core.LPSolver
}

// New builds an Optimizer backed by the gonum simplex implementation.
func New() *Optimizer { return &Optimizer{solver: GonumSolver{}} }

// NewWithSolver builds an Optimizer against a caller-supplied LP solver,
// for tests that want a stub.
func NewWithSolver(solver core.LPSolver) *Optimizer { return &Optimizer{solver: solver} }

func (o *Optimizer) Name() string { return "LinearRelaxation" }

func (o *Optimizer) ShouldBeRun(ps *state.ProblemState) bool {
	return !ps.IsOptimal() && !ps.IsInfeasible()
}

// buildRelaxation assembles the dense LP rows and objective vector:
// every constraint's literals are expanded to a signed sum over
// variables (a negative literal's coefficient contributes to the
// opposite-signed term and an offset folded into the row's bounds), and
// every currently fixed variable gets an equality row pinning it.
func buildRelaxation(problem *core.Problem, ps *state.ProblemState) ([]core.LPRow, []float64) {
	rows := make([]core.LPRow, 0, len(problem.Constraints)+problem.NumVariables)
	for _, c := range problem.Constraints {
		varIdx := make([]int, len(c.Literals))
		coeffs := make([]float64, len(c.Literals))
		var offset int64
		for i, lit := range c.Literals {
			v := int(lit.Var())
			coeff := c.Coefficients[i]
			varIdx[i] = v
			if lit.IsPositive() {
				coeffs[i] = float64(coeff)
			} else {
				coeffs[i] = -float64(coeff)
				offset += coeff
			}
		}
		row := core.LPRow{VarIndices: varIdx, Coeffs: coeffs}
		if c.LowerBound != nil {
			lb := float64(*c.LowerBound - offset)
			row.LowerBound = &lb
		}
		if c.UpperBound != nil {
			ub := float64(*c.UpperBound - offset)
			row.UpperBound = &ub
		}
		rows = append(rows, row)
	}

	for v := 0; v < problem.NumVariables; v++ {
		vi := core.VariableIndex(v)
		if !ps.IsFixed(vi) {
			continue
		}
		bound := 0.0
		if ps.FixedValue(vi) {
			bound = 1.0
		}
		pinned := bound
		rows = append(rows, core.LPRow{
			VarIndices: []int{v},
			Coeffs:     []float64{1},
			LowerBound: &pinned,
			UpperBound: &bound,
		})
	}

	c := make([]float64, problem.NumVariables)
	for i, v := range problem.Objective.Literals {
		c[v] += float64(problem.Objective.Coefficients[i])
	}
	return rows, c
}

// fractionalVariables returns the indices of primal whose value falls
// outside the integral tolerance band around 0 or 1.
func fractionalVariables(primal []float64) []int {
	var frac []int
	for v, x := range primal {
		if x > integralTolerance && x < 1-integralTolerance {
			frac = append(frac, v)
		}
	}
	return frac
}

func roundedValues(problem *core.Problem, primal []float64) []bool {
	values := make([]bool, problem.NumVariables)
	for v, x := range primal {
		values[v] = x >= 0.5
	}
	return values
}

// strongBranching pins each fractional variable in turn to 0 and to 1,
// resolving the relaxation under that extra bound. When exactly one pin
// makes the LP infeasible, the variable is fixed to the other value;
// when both pins solve to optimality, the ceiling of the smaller of the
// two objectives is offered as a lower bound. A pin whose objective is
// merely worse than the incumbent's cost fixes nothing. It reports what
// it deduced back via info, but does not resolve the relaxation again
// itself — the next Optimize call picks fixings up through ps's
// fixed-variable state.
func (o *Optimizer) strongBranching(problem *core.Problem, rows []core.LPRow, c []float64, fractional []int, info *state.LearnedInfo) {
	for _, v := range fractional {
		zero, one := 0.0, 1.0
		pinnedAt := func(bound float64) (float64, core.LPStatus) {
			branchRows := append(append([]core.LPRow(nil), rows...), core.LPRow{
				VarIndices: []int{v},
				Coeffs:     []float64{1},
				LowerBound: &bound,
				UpperBound: &bound,
			})
			objective, _, status, err := o.solver.Solve(c, branchRows, problem.NumVariables)
			if err != nil {
				return 0, core.LPAbnormal
			}
			return objective, status
		}

		zeroObj, zeroStatus := pinnedAt(zero)
		oneObj, oneStatus := pinnedAt(one)

		switch {
		case zeroStatus == core.LPInfeasible && oneStatus != core.LPInfeasible:
			info.FixedLiterals = append(info.FixedLiterals, core.NewLit(core.VariableIndex(v), true))
		case oneStatus == core.LPInfeasible && zeroStatus != core.LPInfeasible:
			info.FixedLiterals = append(info.FixedLiterals, core.NewLit(core.VariableIndex(v), false))
		case zeroStatus == core.LPOptimal && oneStatus == core.LPOptimal:
			bound := math.Ceil(math.Min(zeroObj, oneObj) - integralTolerance)
			if info.LowerBound == state.NoLowerBound || bound > info.LowerBound {
				info.LowerBound = int64(bound)
			}
		}
	}
}

// Optimize resolves the current relaxation once. An all-integral primal
// vector is reported as a feasible candidate solution directly; a
// fractional one contributes a lower bound and, when strong branching is
// enabled, a set of variable fixings for the caller to apply.
func (o *Optimizer) Optimize(ctx context.Context, params *bopparams.Parameters, ps *state.ProblemState, info *state.LearnedInfo, budget core.Budget) core.Status {
	problem := ps.Problem()
	rows, c := buildRelaxation(problem, ps)

	objective, primal, status, err := o.solver.Solve(c, rows, problem.NumVariables)
	if err != nil {
		return core.StatusLimitReached
	}

	switch status {
	case core.LPInfeasible:
		info.ReportsInfeasible = true
		return core.StatusInfeasible
	case core.LPUnbounded, core.LPAbnormal:
		return core.StatusLimitReached
	}

	info.LPValues = append([]float64(nil), primal...)

	fractional := fractionalVariables(primal)
	if len(fractional) == 0 {
		info.Solution = core.NewSolutionFromValues(problem, roundedValues(problem, primal))
		return core.StatusSolutionFound
	}

	bound := int64(math.Ceil(objective - integralTolerance))
	if bound > info.LowerBound {
		info.LowerBound = bound
	}

	if params.UseLPStrongBranching {
		o.strongBranching(problem, rows, c, fractional, info)
	}

	return core.StatusLimitReached
}

package linrelax

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/latticeforge/bop/core"
)

// GonumSolver is the concrete core.LPSolver spec.md §4.10 calls "the LP
// solver": it converts the dense relaxation's inequality rows (each
// sum(coeff_i*x_i) in [lb, ub], plus an implicit 0<=x_i<=1 on every
// variable) into gonum's standard equality form by appending one slack
// column per inequality, the same "inequalities become a slack-augmented
// equality matrix" transform GoMILP's ilp.go applies before calling
// lp.Simplex.
type GonumSolver struct{}

func (GonumSolver) Solve(c []float64, rows []core.LPRow, numVars int) (float64, []float64, core.LPStatus, error) {
	var coeffRows [][]float64
	var rhs []float64
	addRow := func(coeffs []float64, bound float64) {
		coeffRows = append(coeffRows, coeffs)
		rhs = append(rhs, bound)
	}

	for _, row := range rows {
		full := make([]float64, numVars)
		for i, v := range row.VarIndices {
			full[v] = row.Coeffs[i]
		}
		if row.UpperBound != nil {
			addRow(full, *row.UpperBound)
		}
		if row.LowerBound != nil {
			negated := make([]float64, numVars)
			for v, coeff := range full {
				negated[v] = -coeff
			}
			addRow(negated, -*row.LowerBound)
		}
	}
	for v := 0; v < numVars; v++ {
		unit := make([]float64, numVars)
		unit[v] = 1
		addRow(unit, 1)
	}

	numSlack := len(coeffRows)
	numTotal := numVars + numSlack
	cFull := make([]float64, numTotal)
	copy(cFull, c)

	Adata := make([]float64, numSlack*numTotal)
	for r, row := range coeffRows {
		base := r * numTotal
		copy(Adata[base:base+numVars], row)
		Adata[base+numVars+r] = 1
	}
	A := mat.NewDense(numSlack, numTotal, Adata)

	objective, xFull, err := lp.Simplex(nil, cFull, A, rhs, 0)
	switch err {
	case nil:
		return objective, xFull[:numVars], core.LPOptimal, nil
	case lp.ErrInfeasible:
		return 0, nil, core.LPInfeasible, nil
	case lp.ErrUnbounded:
		return 0, nil, core.LPUnbounded, nil
	default:
		return 0, nil, core.LPAbnormal, err
	}
}

package localsearch_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/bopparams"
	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/localsearch"
	"github.com/latticeforge/bop/sat"
)

func newIteratorFixture(t *testing.T, p *core.Problem, init *core.Solution) (*localsearch.Iterator, *sat.Solver) {
	t.Helper()
	s := sat.NewSolver(p.NumVariables)
	m := localsearch.NewMaintainer(p, rand.New(rand.NewSource(3)))
	m.SetReferenceSolution(init)
	r := localsearch.NewRepairer(p, m, s)
	params := bopparams.DefaultParameters()
	it := localsearch.NewIterator(p, m, r, s, params)
	return it, s
}

// A 2-variable at-most-one problem with reference {x0=true} of cost 1.
// The tightened objective row (cost at most 0) is the only infeasible
// row, so the iterator must find a strictly better, still-feasible
// assignment: driving x0 false lowers the cost to 0 and stays within the
// at-most-one bound.
func atMostOneImprovable() (*core.Problem, *core.Solution) {
	ub := int64(1)
	p := &core.Problem{
		NumVariables: 2,
		Constraints: []core.Constraint{{
			Literals:     []core.Lit{core.NewLit(0, true), core.NewLit(1, true)},
			Coefficients: []int64{1, 1},
			UpperBound:   &ub,
		}},
		Objective: core.Objective{
			Literals:     []core.VariableIndex{0, 1},
			Coefficients: []int64{1, 1},
		},
	}
	ref := core.NewSolution(p)
	ref.SetValue(0, true)
	return p, ref
}

func TestIteratorPromotesWhenAlreadyFeasibleAndImproving(t *testing.T) {
	p, ref := atMostOneImprovable()
	it, _ := newIteratorFixture(t, p, ref)

	// The maintainer's reference itself is feasible under its own tightened
	// bound check only relative to the *next* assignment, so the very first
	// step must look for a repair since the reference equals "current".
	result := it.NextAssignment()
	require.Contains(t, []localsearch.Result{localsearch.ResultContinue, localsearch.ResultImproved}, result)
}

func TestIteratorEventuallyFindsAnImprovement(t *testing.T) {
	p, ref := atMostOneImprovable()
	it, _ := newIteratorFixture(t, p, ref)

	improved := false
	for i := 0; i < 50 && !improved; i++ {
		switch it.NextAssignment() {
		case localsearch.ResultImproved:
			improved = true
		case localsearch.ResultExhausted:
			i = 50
		}
	}
	require.True(t, improved)
}

func TestIteratorSynchronizeResetsSearchState(t *testing.T) {
	p, ref := atMostOneImprovable()
	it, _ := newIteratorFixture(t, p, ref)

	it.NextAssignment()
	next := core.NewSolution(p)
	next.SetValue(1, true)
	it.Synchronize(next)

	// The new reference {x1=true} (cost 1) can still be improved, so after
	// synchronizing the search must start clean: the very next step should
	// not immediately report exhaustion from stale state.
	require.NotEqual(t, localsearch.ResultExhausted, it.NextAssignment())
}

package encoding_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/core"
	"github.com/latticeforge/bop/encoding"
	"github.com/latticeforge/bop/sat"
)

func leavesOf(t *testing.T, p *encoding.Pool, s *sat.Solver, n int) []core.NodeIndex {
	t.Helper()
	first := s.NewVariables(n)
	leaves := make([]core.NodeIndex, n)
	for i := 0; i < n; i++ {
		leaves[i] = encoding.NewLeaf(p, core.NewLit(first+core.VariableIndex(i), true), 1)
	}
	return leaves
}

func TestFullMergeChainClauseIsImpliedByPropagation(t *testing.T) {
	s := sat.NewSolver(0)
	p := encoding.NewPool()
	leaves := leavesOf(t, p, s, 4)

	root, err := encoding.BuildTotalizer(p, s, leaves, int64(len(leaves)))
	require.NoError(t, err)

	n := p.Get(root)
	require.True(t, n.Size() >= 2)

	// Forcing literal(i) true must unit-propagate literal(i-1) true, since
	// FullMerge posts the monotone chain clause ¬z_i ∨ z_{i-1}.
	lastIdx := n.Size() - 1
	require.NoError(t, s.AddUnitClause(n.Literal(lastIdx)))
	for i := int64(0); i < lastIdx; i++ {
		v, assigned := s.Value(n.Literal(i).Var())
		require.True(t, assigned, "literal(%d) should be forced by propagation", i)
		require.True(t, v)
	}
}

func TestApplyWeightUpperBoundZeroForcesEveryLiteralFalse(t *testing.T) {
	s := sat.NewSolver(0)
	p := encoding.NewPool()
	leaves := leavesOf(t, p, s, 3)

	root, err := encoding.BuildTotalizer(p, s, leaves, int64(len(leaves)))
	require.NoError(t, err)

	n := p.Get(root)
	n.SetWeight(1)
	size := n.Size()
	require.True(t, size > 0)
	original := make([]core.Lit, size)
	for i := int64(0); i < size; i++ {
		original[i] = n.Literal(i)
	}

	require.NoError(t, encoding.ApplyWeightUpperBound(p, s, root, 0))
	require.Equal(t, int64(0), n.Size())

	for _, lit := range original {
		v, assigned := s.Value(lit.Var())
		require.True(t, assigned)
		require.False(t, v)
	}
}

func TestReducePopsEveryLiteralWhenAllForcedTrue(t *testing.T) {
	s := sat.NewSolver(0)
	p := encoding.NewPool()
	leaves := leavesOf(t, p, s, 3)

	root, err := encoding.BuildTotalizer(p, s, leaves, int64(len(leaves)))
	require.NoError(t, err)
	n := p.Get(root)
	size := n.Size()
	require.True(t, size > 0)

	for i := int64(0); i < size; i++ {
		require.NoError(t, s.AddUnitClause(n.Literal(i)))
	}

	pops := encoding.Reduce(p, s, root)
	require.Equal(t, size, pops)
	require.Equal(t, int64(0), p.Get(root).Size())
}

func TestLazyMergeGrowsOnDemand(t *testing.T) {
	s := sat.NewSolver(0)
	p := encoding.NewPool()
	leaves := leavesOf(t, p, s, 2)

	root, err := encoding.LazyMerge(p, s, leaves[0], leaves[1])
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Get(root).Size())

	require.NoError(t, encoding.IncreaseNodeSize(p, s, root))
	require.Equal(t, int64(2), p.Get(root).Size())
}

func TestGetAssumptionSkipsAlreadyAssignedLiterals(t *testing.T) {
	s := sat.NewSolver(0)
	p := encoding.NewPool()
	leaves := leavesOf(t, p, s, 3)
	root, err := encoding.BuildTotalizer(p, s, leaves, int64(len(leaves)))
	require.NoError(t, err)

	n := p.Get(root)
	require.NoError(t, s.AddUnitClause(n.Literal(0)))

	lit, ok, err := encoding.GetAssumption(p, s, root)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, n.Literal(0), lit)
}

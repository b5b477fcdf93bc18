package collections_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/collections"
)

func TestNonOrderedSetHasherIsOrderIndependent(t *testing.T) {
	h := collections.NewNonOrderedSetHasher(8, rand.New(rand.NewSource(42)))
	a := h.Hash([]int{1, 3, 5})
	b := h.Hash([]int{5, 1, 3})
	require.Equal(t, a, b)
}

func TestNonOrderedSetHasherIgnoresDesignatedElement(t *testing.T) {
	h := collections.NewNonOrderedSetHasher(8, rand.New(rand.NewSource(1)))
	h.SetIgnored(0)
	withIgnored := h.Hash([]int{0, 1, 2})
	without := h.Hash([]int{1, 2})
	require.Equal(t, without, withIgnored)
}

func TestNonOrderedSetHasherDistinguishesDifferentSets(t *testing.T) {
	h := collections.NewNonOrderedSetHasher(16, rand.New(rand.NewSource(7)))
	require.NotEqual(t, h.Hash([]int{1, 2}), h.Hash([]int{1, 3}))
}

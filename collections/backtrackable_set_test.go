package collections_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/bop/collections"
)

func TestBacktrackableIntegerSetRoundTrip(t *testing.T) {
	s := collections.NewBacktrackableIntegerSet(10)
	s.Add(1)
	s.Add(2)

	s.AddBacktrackingLevel()
	sizeBefore := s.Size()
	s.Add(3)
	s.Add(4)
	s.Remove(1)
	require.True(t, s.Contains(3))
	require.False(t, s.Contains(1))

	s.BacktrackOneLevel()
	require.Equal(t, sizeBefore, s.Size())
	require.True(t, s.Contains(1))
	require.True(t, s.Contains(2))
	require.False(t, s.Contains(3))
	require.False(t, s.Contains(4))
}

func TestBacktrackableIntegerSetSuperset(t *testing.T) {
	s := collections.NewBacktrackableIntegerSet(5)
	s.AddBacktrackingLevel()
	s.Add(0)
	s.Add(1)
	s.Remove(0)
	s.BacktrackOneLevel()

	// Superset must still mention 0 and 1 even though neither is a
	// current member after the rollback.
	seen := map[int]bool{}
	for _, m := range s.Superset() {
		seen[m] = true
	}
	require.True(t, seen[0])
	require.True(t, seen[1])
	require.Equal(t, 0, s.Size())
}

func TestBacktrackAllUnwindsEveryLevel(t *testing.T) {
	s := collections.NewBacktrackableIntegerSet(5)
	for i := 0; i < 3; i++ {
		s.AddBacktrackingLevel()
		s.Add(i)
	}
	s.BacktrackAll()
	require.Equal(t, 0, s.Size())
}

func TestBacktrackOneLevelPastInitialIsNoop(t *testing.T) {
	s := collections.NewBacktrackableIntegerSet(3)
	s.Add(0)
	s.BacktrackOneLevel()
	require.Equal(t, 1, s.Size())
}

package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSetRejectsZeroDurations(t *testing.T) {
	_, err := NewSet[int](0, 10)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

// Scenario 2 from spec.md §8:
// insert(v,0); insert(v,100); gc(100) -> contains(v) == true (insert slides the TTL).
func TestSetInsertSlidesTTL(t *testing.T) {
	s, err := NewSet[int](100, 10)
	require.NoError(t, err)

	s.Insert(1, 0)
	require.True(t, s.Contains(1))

	s.Insert(1, 100)
	require.True(t, s.Contains(1))

	s.Insert(2, 0)
	s.GC(100)

	require.True(t, s.Contains(1))
	require.False(t, s.Contains(2))
}

func TestSetRemove(t *testing.T) {
	s, err := NewSet[string](100, 10)
	require.NoError(t, err)

	s.Insert("a", 0)
	require.True(t, s.Contains("a"))
	s.Remove("a")
	require.False(t, s.Contains("a"))
}

func TestSetContainsReflectsMostRecentInsert(t *testing.T) {
	s, err := NewSet[int](50, 10)
	require.NoError(t, err)

	s.Insert(7, 0)
	s.GC(49) // slot cutoff = 4 - 5 = -1, nothing removed yet
	require.True(t, s.Contains(7))

	s.GC(100) // slot cutoff = 10 - 5 = 5, slot 0 is <= 5, removed
	require.False(t, s.Contains(7))
}

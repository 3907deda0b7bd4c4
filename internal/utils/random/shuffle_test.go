package random

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSample_Distinct(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 50; i++ {
		got, err := Sample(items, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)

		seen := map[string]bool{}
		for _, v := range got {
			require.False(t, seen[v], "duplicate %s", v)
			require.Contains(t, items, v)
			seen[v] = true
		}
	}
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
}

func TestSample_ClampsToLength(t *testing.T) {
	got, err := Sample([]int{1, 2}, 5)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{1, 2}, got)

	got, err = Sample([]int{}, 3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestPick(t *testing.T) {
	_, err := Pick([]string{})
	require.Error(t, err)

	v, err := Pick([]string{"only"})
	require.NoError(t, err)
	require.Equal(t, "only", v)
}

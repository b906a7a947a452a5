//go:build slow
// +build slow

package extsort

import (
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Check that large inputs spanning many spilled runs and a deep recursive
// merge still come out fully and globally sorted.
func TestSorterLargeVolumeStaysSorted(t *testing.T) {
	dir, err := os.MkdirTemp("", "extsort-slowtest")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	opts := DefaultOptions()
	opts.Dir = dir
	opts.Disks = 4
	opts.BlockElems = 1024
	opts.MemoryBlocks = 8
	opts.MaxMergeFanIn = 6

	s, err := Open[int64](intCmp{}, intCodec{}, opts)
	require.NoError(t, err)
	defer s.Close()

	const n = 4_000_000
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		require.NoError(t, s.Push(rng.Int63n(1<<40)))
	}

	require.NoError(t, s.Sort())

	var count int64
	prev := intCmp{}.Min()
	for !s.Empty() {
		cur := s.Current()
		require.False(t, intCmp{}.Less(cur, prev), "output went out of order at index %d", count)
		prev = cur
		count++
		require.NoError(t, s.Advance())
	}
	require.Equal(t, int64(n), count)
}

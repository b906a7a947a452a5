package extsort

import (
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func benchmarkSort(b *testing.B, memoryBlocks int) {
	dir, err := os.MkdirTemp("", "extsort-benchtest")
	require.NoError(b, err)
	defer os.RemoveAll(dir)

	opts := DefaultOptions()
	opts.Dir = dir
	opts.BlockElems = 256
	opts.MemoryBlocks = memoryBlocks

	s, err := Open[int64](intCmp{}, intCodec{}, opts)
	require.NoError(b, err)
	defer s.Close()

	const n = 20000
	rng := rand.New(rand.NewSource(1))
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = rng.Int63n(1 << 32)
	}

	b.ResetTimer()
	for run := 0; run < b.N; run++ {
		b.StopTimer()
		require.NoError(b, s.Clear())
		for _, v := range vals {
			require.NoError(b, s.Push(v))
		}
		b.StartTimer()

		require.NoError(b, s.Sort())
		for !s.Empty() {
			require.NoError(b, s.Advance())
		}
	}
}

// BenchmarkSortInMemory uses a large memory budget: each fill holds 64
// blocks of 256 records, so the 20000 records spill as only two runs,
// merged in a single pass.
func BenchmarkSortInMemory(b *testing.B) { benchmarkSort(b, 128) }

// BenchmarkSortManyRuns forces many spilled runs and a recursive merge.
func BenchmarkSortManyRuns(b *testing.B) { benchmarkSort(b, 2) }

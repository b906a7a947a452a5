package extsort

import (
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestSorter(t *testing.T, memoryBlocks int) *Sorter[int64] {
	t.Helper()
	dir, err := os.MkdirTemp("", "extsort-apitest")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	opts := DefaultOptions()
	opts.Dir = dir
	opts.BlockElems = 8
	opts.MemoryBlocks = memoryBlocks

	s, err := Open[int64](intCmp{}, intCodec{}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func drainAll(t *testing.T, s *Sorter[int64]) []int64 {
	t.Helper()
	var out []int64
	for !s.Empty() {
		out = append(out, s.Current())
		require.NoError(t, s.Advance())
	}
	return out
}

func TestSorterPushThenSortProducesOrderedOutput(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 4)
	vals := []int64{9, 3, 7, 1, 8, 2, 6, 4, 5, 0}
	for _, v := range vals {
		require.NoError(t, s.Push(v))
	}
	require.NoError(t, s.Sort())

	got := drainAll(t, s)
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestSorterSmallInputStaysInMemory(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 64)
	for _, v := range []int64{3, 1, 2} {
		require.NoError(t, s.Push(v))
	}
	require.NoError(t, s.Sort())

	require.Equal(t, []int64{1, 2, 3}, drainAll(t, s))
}

func TestSorterForcesManyRunsAndRecursiveMerge(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 2) // m2 = 1, capacity = BlockElems = 8

	rng := rand.New(rand.NewSource(42))
	const n = 500
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = rng.Int63n(10000)
	}
	for _, v := range vals {
		require.NoError(t, s.Push(v))
	}

	s.SetMergerMemory(3) // force recursive reduction with a tiny fan-in
	require.NoError(t, s.Sort())

	got := drainAll(t, s)
	require.Len(t, got, n)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1], got[i])
	}
}

func TestSorterPushAfterSortIsLogicError(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 4)
	require.NoError(t, s.Push(1))
	require.NoError(t, s.Sort())
	require.ErrorIs(t, s.Push(2), ErrLogic)
}

func TestSorterAdvanceBeforeSortIsLogicError(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 4)
	require.ErrorIs(t, s.Advance(), ErrLogic)
}

func TestSorterRewindReplaysSameOutput(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 2)
	for _, v := range []int64{5, 3, 8, 1, 9, 2} {
		require.NoError(t, s.Push(v))
	}
	require.NoError(t, s.Sort())

	first := drainAll(t, s)
	require.NoError(t, s.Rewind())
	second := drainAll(t, s)

	require.Equal(t, first, second)
}

func TestSorterClearReturnsToInputMode(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 4)
	require.NoError(t, s.Push(1))
	require.NoError(t, s.Sort())
	drainAll(t, s)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Push(42))
	require.NoError(t, s.Sort())
	require.Equal(t, []int64{42}, drainAll(t, s))
}

func TestSorterFinishClearAutoReleasesOnDrain(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 4)
	require.NoError(t, s.Push(1))
	require.NoError(t, s.FinishClear())
	drainAll(t, s)

	require.Error(t, s.Rewind())
}

func TestSorterNumElemsInRun(t *testing.T) {
	t.Parallel()

	s := openTestSorter(t, 2)
	for i := int64(0); i < 40; i++ {
		require.NoError(t, s.Push(i))
	}
	require.NoError(t, s.Sort())

	total := int64(0)
	for i := 0; ; i++ {
		n, err := s.NumElemsInRun(i)
		if err != nil {
			break
		}
		total += n
	}
	require.Equal(t, int64(40), total)
}

func TestOptionsValidateRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	opts := Options{}
	require.ErrorIs(t, opts.Validate(), ErrBadParameter)
}

func TestOptionsValidateFillsDefaults(t *testing.T) {
	t.Parallel()

	opts := Options{Dir: "/tmp/whatever", BlockElems: 16}
	require.NoError(t, opts.Validate())
	require.NotNil(t, opts.Logger)
	require.Equal(t, 1, opts.Disks)
}

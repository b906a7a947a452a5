package creator_test

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/creator"
	"github.com/stretchr/testify/require"
)

type intCmp struct{}

func (intCmp) Less(a, b int) bool { return a < b }
func (intCmp) Min() int           { return -1 << 31 }
func (intCmp) Max() int           { return 1<<31 - 1 }

type intCodec struct{}

func (intCodec) Size() int { return 8 }
func (intCodec) Encode(v int, dst []byte) {
	binary.BigEndian.PutUint64(dst, uint64(int64(v)))
}
func (intCodec) Decode(src []byte) int {
	return int(int64(binary.BigEndian.Uint64(src)))
}

func openTestManager(t *testing.T, blockElems int) *block.Manager[int] {
	t.Helper()
	dir, err := os.MkdirTemp("", "extsort-creator")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	m, err := block.OpenManager[int](block.Config{
		Dir: dir, Disks: 1, BlockElems: blockElems, WorkersPerDisk: 2,
	}, intCodec{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestFinishBelowOneBlockYieldsSmallRun(t *testing.T) {
	m := openTestManager(t, 8)
	c, err := creator.New[int](intCmp{}, m, 4, block.RoundRobin)
	require.NoError(t, err)

	for _, v := range []int{5, 3, 1} {
		require.NoError(t, c.Push(v))
	}

	result, err := c.Finish()
	require.NoError(t, err)
	require.True(t, result.IsSmall())
	require.Equal(t, []int{1, 3, 5}, result.SmallRun)
}

func TestNewRejectsTooFewMemoryBlocks(t *testing.T) {
	m := openTestManager(t, 4)
	_, err := creator.New[int](intCmp{}, m, 1, block.RoundRobin)
	require.ErrorIs(t, err, creator.ErrInsufficientMemory)
}

func TestPushBeyondCapacitySpillsExternalRuns(t *testing.T) {
	m := openTestManager(t, 4)
	c, err := creator.New[int](intCmp{}, m, 2, block.RoundRobin) // m2 = 1, capacity = 4 elems
	require.NoError(t, err)

	vals := []int{9, 1, 8, 2, 7, 3, 6, 4, 5}
	for _, v := range vals {
		require.NoError(t, c.Push(v))
	}

	result, err := c.Finish()
	require.NoError(t, err)
	require.False(t, result.IsSmall())
	require.Equal(t, int64(len(vals)), result.Elements)
	require.GreaterOrEqual(t, result.NumRuns(), 2)

	var total int64
	for _, sz := range result.RunSizes {
		total += sz
	}
	require.Equal(t, int64(len(vals)), total)
}

// TestNineElementsWithTwoMemoryBlocksYieldsTwoRunsOfEightAndOne exercises the
// scenario directly: capacity = (memBlocks/2)*blockElems = 8, so a 9-element
// push spills exactly one full run of 8 when the ninth push finds the buffer
// at capacity, then Finish spills the trailing 1-element run.
func TestNineElementsWithTwoMemoryBlocksYieldsTwoRunsOfEightAndOne(t *testing.T) {
	m := openTestManager(t, 8)
	c, err := creator.New[int](intCmp{}, m, 2, block.RoundRobin)
	require.NoError(t, err)

	for _, v := range []int{9, 1, 8, 2, 7, 3, 6, 4, 5} {
		require.NoError(t, c.Push(v))
	}

	result, err := c.Finish()
	require.NoError(t, err)
	require.False(t, result.IsSmall())
	require.Equal(t, 2, result.NumRuns())
	require.Equal(t, []int64{8, 1}, result.RunSizes)
}

func TestFromSortedSequencesBuildsOneRunPerSequence(t *testing.T) {
	m := openTestManager(t, 4)

	result, err := creator.FromSortedSequences[int](intCmp{}, m, [][]int{
		{1, 2, 3, 4, 5},
		{10, 20},
	}, block.RoundRobin)
	require.NoError(t, err)
	require.Equal(t, 2, result.NumRuns())
	require.Equal(t, int64(7), result.Elements)
}

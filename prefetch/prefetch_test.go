package prefetch_test

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/prefetch"
	"github.com/flowsort/extsort/runs"
	"github.com/stretchr/testify/require"
)

type u32Codec struct{}

func (u32Codec) Size() int                   { return 4 }
func (u32Codec) Encode(v uint32, dst []byte) { binary.BigEndian.PutUint32(dst, v) }
func (u32Codec) Decode(src []byte) uint32    { return binary.BigEndian.Uint32(src) }

func openTestManager(t *testing.T, disks int) *block.Manager[uint32] {
	t.Helper()
	dir, err := os.MkdirTemp("", "extsort-prefetch")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	m, err := block.OpenManager[uint32](block.Config{
		Dir: dir, Disks: disks, BlockElems: 4, WorkersPerDisk: 2,
	}, u32Codec{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func writeRun(t *testing.T, m *block.Manager[uint32], n int) runs.Run[uint32] {
	t.Helper()
	bids := m.NewBlocks(block.RoundRobin, n)
	run := make(runs.Run[uint32], n)
	for i, bid := range bids {
		blk := block.NewBlock[uint32](4)
		blk.Elems[0] = uint32(i)
		require.NoError(t, m.WriteAsync(bid, blk).Wait())
		run[i] = runs.TriggerEntry[uint32]{BID: bid, Value: blk.Elems[0]}
	}
	return run
}

func TestPullBlockDeliversInScheduleOrder(t *testing.T) {
	m := openTestManager(t, 1)
	run := writeRun(t, m, 5)

	pf := prefetch.New(m, run, prefetch.IdentityOrder(len(run)), 2)

	for i := 0; i < len(run); i++ {
		require.False(t, pf.Empty())
		require.Equal(t, i, pf.Pos())
		blk, err := pf.PullBlock()
		require.NoError(t, err)
		require.Equal(t, uint32(i), blk.Elems[0])
		pf.BlockConsumed()
	}

	require.True(t, pf.Empty())
	_, err := pf.PullBlock()
	require.ErrorIs(t, err, prefetch.ErrExhausted)
}

func TestDeviceAwareOrderIsAPermutation(t *testing.T) {
	m := openTestManager(t, 3)
	run := writeRun(t, m, 9)

	order := prefetch.DeviceAwareOrder(run, m.NumDisks())
	require.Len(t, order, len(run))

	seen := make([]bool, len(run))
	for _, idx := range order {
		require.False(t, seen[idx], "duplicate index in issue order")
		seen[idx] = true
	}
}

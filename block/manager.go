package block

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/btree"
	"golang.org/x/sync/errgroup"
)

// Manager allocates and frees BIDs and performs the asynchronous block
// reads/writes behind them. It stripes newly allocated blocks across a
// fixed number of backing disk files (one mmap-backed file per disk) and
// recycles freed block indices through a per-disk ordered free-set, so
// that DeleteBlocks followed by NewBlocks tends to reuse the lowest freed
// slot first, keeping each disk file as compact as possible.
type Manager[V any] struct {
	mu sync.Mutex

	codec      Codec[V]
	blockElems int
	blockBytes int

	disks       []*diskFile
	dispatchers []*dispatcher
	free        []*btree.Map[int64, struct{}]
	highWater   []int64

	rr uint64
}

// Config describes how a Manager should provision its backing storage.
type Config struct {
	// Dir is the directory holding one file per disk.
	Dir string
	// Disks is the number of backing disk files to stripe blocks across.
	Disks int
	// BlockElems is the number of records per block (BLOCK_ELEMS).
	BlockElems int
	// WorkersPerDisk bounds how many concurrent reads/writes a single disk
	// services at once; this is also the natural "min_prefetch_buffers"
	// floor a caller should budget for.
	WorkersPerDisk int
}

// OpenManager provisions (or reopens) Disks backing files under Dir and
// returns a ready-to-use Manager.
func OpenManager[V any](cfg Config, codec Codec[V]) (*Manager[V], error) {
	if cfg.Disks <= 0 {
		cfg.Disks = 1
	}
	if cfg.WorkersPerDisk <= 0 {
		cfg.WorkersPerDisk = 2
	}
	if cfg.BlockElems <= 0 {
		return nil, fmt.Errorf("block: BlockElems must be positive")
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("block: mkdir: %w", err)
	}

	blockBytes := cfg.BlockElems * codec.Size()

	m := &Manager[V]{
		codec:      codec,
		blockElems: cfg.BlockElems,
		blockBytes: blockBytes,
	}

	for i := 0; i < cfg.Disks; i++ {
		path := filepath.Join(cfg.Dir, fmt.Sprintf("disk-%03d.blk", i))
		df, err := openDiskFile(path, blockBytes)
		if err != nil {
			return nil, err
		}

		m.disks = append(m.disks, df)
		m.dispatchers = append(m.dispatchers, newDispatcher(cfg.WorkersPerDisk))
		m.free = append(m.free, &btree.Map[int64, struct{}]{})
		m.highWater = append(m.highWater, 0)
	}

	return m, nil
}

// NumDisks returns the number of backing disk files.
func (m *Manager[V]) NumDisks() int { return len(m.disks) }

// BlockElems returns the fixed number of records per block.
func (m *Manager[V]) BlockElems() int { return m.blockElems }

// SetPriorityOp hints that op should be scheduled ahead of the opposite
// kind on every disk; purely advisory, see dispatcher.setPriorityOp.
func (m *Manager[V]) SetPriorityOp(op Op) {
	for _, d := range m.dispatchers {
		d.setPriorityOp(op)
	}
}

func (m *Manager[V]) pickDisk(strategy AllocStrategy) int {
	if strategy == SingleDisk || len(m.disks) == 1 {
		return 0
	}
	d := int(m.rr % uint64(len(m.disks)))
	m.rr++
	return d
}

func (m *Manager[V]) allocOne(disk int) int64 {
	free := m.free[disk]
	if it := free.Iter(); it.Next() {
		idx := it.Key()
		free.Delete(idx)
		return idx
	}

	idx := m.highWater[disk]
	m.highWater[disk]++
	return idx
}

// NewBlocks allocates n fresh BIDs using strategy, out_begin/out_end in
// foxxll terms collapsed to "return a slice of exactly n BIDs".
func (m *Manager[V]) NewBlocks(strategy AllocStrategy, n int) []BID {
	m.mu.Lock()
	defer m.mu.Unlock()

	bids := make([]BID, n)
	for i := 0; i < n; i++ {
		disk := m.pickDisk(strategy)
		bids[i] = BID{Disk: uint16(disk), Index: m.allocOne(disk)}
	}
	return bids
}

// DeleteBlocks returns bids to their disks' free sets for reuse.
func (m *Manager[V]) DeleteBlocks(bids []BID) {
	if len(bids) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bid := range bids {
		m.free[bid.Disk].Set(bid.Index, struct{}{})
	}
}

// ReadAsync issues an asynchronous read of bid, returning a handle that
// yields the decoded block once Wait()'d on.
func (m *Manager[V]) ReadAsync(bid BID) *Handle[V] {
	h := newHandle[V]()
	d := m.disks[bid.Disk]

	m.dispatchers[bid.Disk].submit(OpRead, func() {
		raw := make([]byte, m.blockBytes)
		if err := d.readBlock(bid.Index, raw); err != nil {
			h.finish(fmt.Errorf("block: read %s: %w", bid, err))
			return
		}

		blk := NewBlock[V](m.blockElems)
		sz := m.codec.Size()
		for i := range blk.Elems {
			blk.Elems[i] = m.codec.Decode(raw[i*sz : (i+1)*sz])
		}
		h.block = blk
		h.finish(nil)
	})

	return h
}

// WriteAsync issues an asynchronous write of blk to bid.
func (m *Manager[V]) WriteAsync(bid BID, blk *Block[V]) *Handle[V] {
	h := newHandle[V]()
	d := m.disks[bid.Disk]

	m.dispatchers[bid.Disk].submit(OpWrite, func() {
		raw := make([]byte, m.blockBytes)
		sz := m.codec.Size()
		for i, v := range blk.Elems {
			m.codec.Encode(v, raw[i*sz:(i+1)*sz])
		}

		if err := d.writeBlock(bid.Index, raw); err != nil {
			h.finish(fmt.Errorf("block: write %s: %w", bid, err))
			return
		}
		h.finish(nil)
	})

	return h
}

// WaitAll waits on every handle concurrently and returns the first error
// encountered, mirroring the teacher's pattern of joining a batch of
// write-behind requests before reusing their buffers.
func WaitAll[V any](handles ...*Handle[V]) error {
	var g errgroup.Group
	for _, h := range handles {
		h := h
		g.Go(h.Wait)
	}
	return g.Wait()
}

// Close releases all backing files. It does not validate that every
// allocated block was freed first -- that is the SortedRuns owner's job.
func (m *Manager[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for i, d := range m.disks {
		m.dispatchers[i].close()
		if err := d.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Package creator implements the run-formation stage (C7/C8/C9): accumulate
// records in memory up to a fixed budget, sort each fill, and spill it to
// external blocks as one run -- except for the common case where the whole
// input turns out to fit in a single block, which is kept purely in memory
// as SortedRuns' small-run form and never touches storage at all.
//
// The three STXXL run-creator specializations (stream-driven, push-driven,
// from-already-sorted-sequences) are flattened into one Creator with three
// entry points, since in Go they differ only in how values arrive, not in
// how a fill is sorted and spilled.
package creator

import (
	"fmt"
	"sort"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/ordering"
	"github.com/flowsort/extsort/runs"
)

// Input is a pull-based source of records, e.g. an upstream stage of a
// larger pipeline: Empty reports exhaustion, Current returns the record at
// the cursor (only valid when !Empty()), and Advance moves the cursor
// forward, returning an error if the underlying source failed.
type Input[V any] interface {
	Empty() bool
	Current() V
	Advance() error
}

// Creator accumulates pushed records and turns them into a SortedRuns.
// It is not safe for concurrent use.
type Creator[V any] struct {
	cmp           ordering.Comparator[V]
	manager       *block.Manager[V]
	blockElems    int
	capacity      int
	allocStrategy block.AllocStrategy

	buf     []V
	flushed bool
	result  *runs.SortedRuns[V]
}

// New creates a Creator over a memBlocks-block memory budget (the M/B_BYTES
// budget from the run-formation stage). Only half of it -- m2 = memBlocks/2
// -- is ever held as one run's worth of records at a time; the other half
// is the headroom the budget reserves for sorting the next fill while the
// previous one is still being written out. memBlocks must be at least 2 so
// that headroom is non-empty; anything less is ErrInsufficientMemory.
// allocStrategy picks which disk(s) the run's spilled blocks land on.
func New[V any](cmp ordering.Comparator[V], manager *block.Manager[V], memBlocks int, allocStrategy block.AllocStrategy) (*Creator[V], error) {
	if memBlocks < 2 {
		return nil, fmt.Errorf("%w: need at least 2 memory blocks, got %d", ErrInsufficientMemory, memBlocks)
	}
	be := manager.BlockElems()
	m2 := memBlocks / 2
	return &Creator[V]{
		cmp:           cmp,
		manager:       manager,
		blockElems:    be,
		capacity:      m2 * be,
		allocStrategy: allocStrategy,
		result:        runs.New[V](manager),
	}, nil
}

// Push buffers v. If the buffer already holds a full fill (the memory
// budget), that fill is first sorted and spilled as a run, so an input that
// ends exactly at capacity is still left for Finish to handle.
func (c *Creator[V]) Push(v V) error {
	if len(c.buf) >= c.capacity {
		if err := c.flushRun(); err != nil {
			return err
		}
	}
	c.buf = append(c.buf, v)
	return nil
}

// Finish sorts and spills any remaining buffered records and returns the
// completed SortedRuns. If the Creator never spilled a run at all and the
// final fill is no larger than one block, the result is the small-run
// form: no external blocks are ever allocated.
func (c *Creator[V]) Finish() (*runs.SortedRuns[V], error) {
	if !c.flushed && len(c.buf) <= c.blockElems {
		sort.Slice(c.buf, func(i, j int) bool { return c.cmp.Less(c.buf[i], c.buf[j]) })
		c.result.SetSmall(append([]V(nil), c.buf...))
		c.buf = c.buf[:0]
		return c.result, nil
	}

	if len(c.buf) > 0 {
		if err := c.flushRun(); err != nil {
			return nil, err
		}
	}
	return c.result, nil
}

// FromInput drains in completely via Push/Finish, the pull-driven entry
// point (STXXL's default runs_creator).
func (c *Creator[V]) FromInput(in Input[V]) (*runs.SortedRuns[V], error) {
	for !in.Empty() {
		if err := c.Push(in.Current()); err != nil {
			return nil, err
		}
		if err := in.Advance(); err != nil {
			return nil, err
		}
	}
	return c.Finish()
}

// flushRun sorts the current buffer in place, writes it out as one run of
// ceil(n/blockElems) blocks (padding the last with the comparator's Max()
// sentinel), and records its trigger entries.
func (c *Creator[V]) flushRun() error {
	sort.Slice(c.buf, func(i, j int) bool { return c.cmp.Less(c.buf[i], c.buf[j]) })
	if err := verifyRunSorted(c.cmp, c.buf); err != nil {
		return fmt.Errorf("creator: flush run: %w", err)
	}

	n := len(c.buf)
	numBlocks := (n + c.blockElems - 1) / c.blockElems
	bids := c.manager.NewBlocks(c.allocStrategy, numBlocks)

	run := make(runs.Run[V], numBlocks)
	handles := make([]*block.Handle[V], numBlocks)

	for i := 0; i < numBlocks; i++ {
		blk := block.NewBlock[V](c.blockElems)
		start := i * c.blockElems
		end := start + c.blockElems
		if end > n {
			end = n
		}
		copy(blk.Elems, c.buf[start:end])
		for j := end - start; j < c.blockElems; j++ {
			blk.Elems[j] = c.cmp.Max()
		}

		run[i] = runs.TriggerEntry[V]{BID: bids[i], Value: blk.First()}
		handles[i] = c.manager.WriteAsync(bids[i], blk)
	}

	if err := block.WaitAll(handles...); err != nil {
		return fmt.Errorf("creator: flush run: %w", err)
	}

	c.result.AddRun(run, int64(n))
	c.flushed = true
	c.buf = c.buf[:0]
	return nil
}

// FromSortedSequences builds a SortedRuns directly from sequences the
// caller already sorted, one run per sequence, skipping the in-memory sort
// step entirely (STXXL's from_sorted_sequences specialization). It takes no
// memory budget: each non-empty sequence becomes exactly one run, since the
// caller decided the fill boundaries. Empty sequences produce no run, and a
// lone sequence of at most one block becomes the small-run form instead.
// allocStrategy picks which disk(s) the resulting blocks land on.
func FromSortedSequences[V any](cmp ordering.Comparator[V], manager *block.Manager[V], sequences [][]V, allocStrategy block.AllocStrategy) (*runs.SortedRuns[V], error) {
	result := runs.New[V](manager)
	blockElems := manager.BlockElems()

	if len(sequences) == 1 && len(sequences[0]) <= blockElems {
		result.SetSmall(append([]V(nil), sequences[0]...))
		return result, nil
	}

	for _, seq := range sequences {
		if len(seq) == 0 {
			continue
		}

		n := len(seq)
		numBlocks := (n + blockElems - 1) / blockElems
		bids := manager.NewBlocks(allocStrategy, numBlocks)

		run := make(runs.Run[V], numBlocks)
		handles := make([]*block.Handle[V], numBlocks)

		for i := 0; i < numBlocks; i++ {
			blk := block.NewBlock[V](blockElems)
			start := i * blockElems
			end := start + blockElems
			if end > n {
				end = n
			}
			copy(blk.Elems, seq[start:end])
			for j := end - start; j < blockElems; j++ {
				blk.Elems[j] = cmp.Max()
			}

			run[i] = runs.TriggerEntry[V]{BID: bids[i], Value: blk.First()}
			handles[i] = manager.WriteAsync(bids[i], blk)
		}

		if err := block.WaitAll(handles...); err != nil {
			return nil, fmt.Errorf("creator: from sorted sequences: %w", err)
		}

		result.AddRun(run, int64(n))
	}

	return result, nil
}

package merge

import (
	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/ordering"
)

// HorizonSource supplies one run's blocks to HorizonMerger. Unlike BlockFeed,
// it additionally exposes the head value of the next block it has not yet
// fetched, so the horizon bound can be computed without issuing a
// speculative read.
type HorizonSource[V any] interface {
	// Next blocks until the run's next block is ready and returns it.
	Next() (*block.Block[V], error)
	// NextHead returns the head value of the block a following Next call
	// would deliver, without fetching it, and false once nothing remains
	// to be fetched for this run.
	NextHead() (V, bool)
}

// horizonCursor walks one run's blocks through a HorizonSource, buffering
// at most one block at a time -- the "currently-buffered sequence" of
// spec.md 4.3. Unlike the loser-tree cursor (cursor.go), it never fetches
// ahead of what HorizonMerger's refill step explicitly asks for.
type horizonCursor[V any] struct {
	src HorizonSource[V]

	blk       *block.Block[V]
	idx       int
	remaining int64
}

func newHorizonCursor[V any](src HorizonSource[V], size int64) *horizonCursor[V] {
	return &horizonCursor[V]{src: src, remaining: size}
}

// exhausted reports whether the run has no more elements anywhere, fetched
// or not.
func (c *horizonCursor[V]) exhausted() bool { return c.remaining <= 0 }

// bufferedLen is how many not-yet-consumed elements remain in the block
// currently held in memory.
func (c *horizonCursor[V]) bufferedLen() int {
	if c.blk == nil {
		return 0
	}
	n := len(c.blk.Elems) - c.idx
	if int64(n) > c.remaining {
		n = int(c.remaining)
	}
	return n
}

func (c *horizonCursor[V]) peek() V { return c.blk.Elems[c.idx] }

func (c *horizonCursor[V]) consumeOne() {
	c.idx++
	c.remaining--
}

// refill fetches the run's next block. Called only when the previously
// buffered block has been fully consumed (or none has been fetched yet);
// this is the only point at which a horizon cursor performs I/O.
func (c *horizonCursor[V]) refill() error {
	if c.remaining <= 0 || c.bufferedLen() > 0 {
		return nil
	}
	blk, err := c.src.Next()
	if err != nil {
		return err
	}
	c.blk = blk
	c.idx = 0
	return nil
}

// HorizonMerger implements the bounded-horizon multiway merge (C6): instead
// of a tournament tree advancing and comparing one element at a time, it
// computes a horizon -- the value of the next not-yet-fetched block across
// all runs in the global schedule, spec.md 4.3 -- and merges every
// currently-buffered element that is provably <= that horizon in one batch,
// refilling only the sequences that ran dry before recomputing the horizon
// and repeating. Safe because every run is internally sorted (data-model
// invariant 4) and each source's schedule is head-value sorted, so nothing
// still unfetched can compare less than the horizon.
type HorizonMerger[V any] struct {
	cmp     ordering.Comparator[V]
	srcs    []HorizonSource[V]
	cursors []*horizonCursor[V]
	err     error
}

// NewHorizonMerger builds a HorizonMerger over one HorizonSource and element
// count per run. len(srcs) must equal len(sizes).
func NewHorizonMerger[V any](cmp ordering.Comparator[V], srcs []HorizonSource[V], sizes []int64) *HorizonMerger[V] {
	hm := &HorizonMerger[V]{
		cmp:     cmp,
		srcs:    srcs,
		cursors: make([]*horizonCursor[V], len(srcs)),
	}
	for i, src := range srcs {
		hm.cursors[i] = newHorizonCursor(src, sizes[i])
	}
	return hm
}

// Err returns the first error encountered reading any run's blocks.
func (hm *HorizonMerger[V]) Err() error { return hm.err }

// Empty reports whether every run has been fully consumed.
func (hm *HorizonMerger[V]) Empty() bool {
	if hm.err != nil {
		return true
	}
	for _, c := range hm.cursors {
		if !c.exhausted() {
			return false
		}
	}
	return true
}

// horizon returns the smallest "next not-yet-fetched block" head value
// across every source, and whether any source still has one. Sources that
// have nothing left to fetch impose no bound; if every source has nothing
// left to fetch, the merge is unbounded -- everything already buffered can
// be drained with no further risk of a smaller value arriving from disk.
func (hm *HorizonMerger[V]) horizon() (V, bool) {
	var best V
	bounded := false
	for _, s := range hm.srcs {
		v, ok := s.NextHead()
		if !ok {
			continue
		}
		if !bounded || hm.cmp.Less(v, best) {
			best = v
			bounded = true
		}
	}
	return best, bounded
}

// fillBuffers refills any cursor that is not exhausted but has nothing
// buffered -- true on the very first call, and again whenever a batch
// drains a sequence dry.
func (hm *HorizonMerger[V]) fillBuffers() bool {
	refilled := false
	for _, c := range hm.cursors {
		if c.exhausted() || c.bufferedLen() > 0 {
			continue
		}
		if err := c.refill(); err != nil {
			hm.err = err
			return false
		}
		refilled = true
	}
	return refilled
}

// Next returns the next element in globally sorted order, or ok=false once
// Empty or Err() != nil. Callers must stop calling Next once it returns
// ok=false; the underlying cursors are not reset.
func (hm *HorizonMerger[V]) Next() (V, bool) {
	for {
		if hm.Empty() {
			var zero V
			return zero, false
		}

		// Drain everything currently provable to lie at or below the
		// horizon before recomputing it or touching storage again.
		h, bounded := hm.horizon()
		best := -1
		for i, c := range hm.cursors {
			if c.exhausted() || c.bufferedLen() == 0 {
				continue
			}
			if bounded && hm.cmp.Less(h, c.peek()) {
				continue // strictly greater than the horizon, not safe yet
			}
			if best == -1 || hm.cmp.Less(c.peek(), hm.cursors[best].peek()) {
				best = i
			}
		}
		if best != -1 {
			v := hm.cursors[best].peek()
			hm.cursors[best].consumeOne()
			return v, true
		}

		// Nothing buffered is safely below the horizon; refill every
		// dry-but-not-exhausted cursor and recompute.
		if !hm.fillBuffers() {
			if hm.err != nil {
				var zero V
				return zero, false
			}
			// No cursor needed a refill yet every buffer is empty: only
			// possible before the very first fill, handled by Empty above.
			var zero V
			return zero, false
		}
	}
}

// Package merge implements the tournament-tree k-way merge (C5) that drives
// both the recursive run reducer and the top-level runs merger, plus an
// optional bounded-horizon multiway variant (C6) for callers who would
// rather pay a little extra comparison work for fewer heap operations on
// very small fan-ins.
package merge

import (
	"fmt"

	"github.com/flowsort/extsort/ordering"
)

// Merger produces the globally sorted sequence of k runs by repeatedly
// popping the least element across all run cursors. It holds no buffering
// of its own: BlockFeed funcs are expected to be backed by a prefetcher (at
// the top level) or by direct block reads (inside the recursive reducer).
type Merger[V any] struct {
	heap *cursorHeap[V]
}

// New builds a Merger over one BlockFeed and element count per run. len(feeds)
// must equal len(sizes).
func New[V any](cmp ordering.Comparator[V], feeds []BlockFeed[V], sizes []int64) *Merger[V] {
	cs := make([]*cursor[V], len(feeds))
	for i, feed := range feeds {
		cs[i] = newCursor(feed, sizes[i], cmp.Max())
	}

	h := &cursorHeap[V]{cs: cs, cmp: cmp}
	h.init()

	return &Merger[V]{heap: h}
}

// Empty reports whether every run has been fully consumed.
func (m *Merger[V]) Empty() bool {
	return m.heap.Len() == 0 || m.heap.cs[0].exhausted
}

// Err returns the first error encountered reading any run's blocks.
func (m *Merger[V]) Err() error {
	for _, c := range m.heap.cs {
		if c.err != nil {
			return c.err
		}
	}
	return nil
}

// Next returns the next element in globally sorted order, or ok=false once
// Empty. Callers must stop calling Next once it returns ok=false; the
// underlying cursors are not reset.
func (m *Merger[V]) Next() (V, bool) {
	if m.Empty() {
		var zero V
		return zero, false
	}

	top := m.heap.cs[0]
	v := top.current
	top.advance()
	m.heap.fix(0)

	return v, true
}

// CheckSortedRuns takes the elements of each run as one slice per run and
// verifies each run, independently, is non-decreasing. It does not merge the runs
// against each other -- that property is exercised by running a Merger and
// checking its own output, not by this function. Intended for the
// extsort_checks build tag and for tests, not for production hot paths.
func CheckSortedRuns[V any](cmp ordering.Comparator[V], runElems [][]V) error {
	for ri, elems := range runElems {
		for i := 1; i < len(elems); i++ {
			if cmp.Less(elems[i], elems[i-1]) {
				return fmt.Errorf("merge: run %d not sorted at position %d: %w", ri, i, ErrOrderViolation)
			}
		}
	}
	return nil
}

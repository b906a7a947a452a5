// Package runs implements the run descriptor and SortedRuns aggregate (the
// metadata produced by a run creator and consumed by a runs merger), plus
// the trigger-entry comparator used to order run heads without
// dereferencing their blocks.
package runs

import (
	"sync/atomic"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/ordering"
)

// TriggerEntry pairs a block identifier with the first record of the block
// it references, so a merger can pick the next block to read by comparing
// values without touching storage.
type TriggerEntry[V any] struct {
	BID   block.BID
	Value V
}

// Run is an ordered sequence of trigger entries whose concatenated blocks
// are sorted. Its length in elements is tracked separately because the
// last block is padded with the comparator's Max() sentinel.
type Run[V any] []TriggerEntry[V]

// freer is implemented by block.Manager[V]; kept as a narrow interface here
// so this package does not need the V-parameterized codec machinery.
type freer interface {
	DeleteBlocks(bids []block.BID)
}

// SortedRuns is the aggregate produced by a run creator: either a small,
// fully in-memory run (no blocks allocated) or a set of external runs plus
// their sizes. It owns the BIDs of every run it holds and frees them
// through the manager on Clear or when the last reference is released,
// matching the refcounted-sharing requirement from the data model (a
// runs-merger and a sorter facade that rewinds both need the same
// SortedRuns to stay alive across rewinds).
type SortedRuns[V any] struct {
	refs int32

	manager freer

	// SmallRun holds the small-run form: a fully sorted, in-memory vector
	// of at most BlockElems records. Non-empty only when Runs is empty.
	SmallRun []V

	// Runs and RunSizes are parallel vectors: Runs[i] is the trigger-entry
	// sequence of run i, RunSizes[i] its element count (run form).
	Runs     []Run[V]
	RunSizes []int64

	// Elements is the total record count across both forms.
	Elements int64
}

// New creates an empty SortedRuns with one live reference, owned by m for
// freeing blocks.
func New[V any](m freer) *SortedRuns[V] {
	return &SortedRuns[V]{manager: m, refs: 1}
}

// Retain increments the reference count and returns the same object, for
// callers (e.g. a sorter facade supporting rewind) that need the runs to
// outlive a merger that only partially consumes them.
func (s *SortedRuns[V]) Retain() *SortedRuns[V] {
	atomic.AddInt32(&s.refs, 1)
	return s
}

// Release decrements the reference count, freeing all held BIDs through
// the manager when it reaches zero.
func (s *SortedRuns[V]) Release() {
	if atomic.AddInt32(&s.refs, -1) == 0 {
		s.freeBlocks()
	}
}

func (s *SortedRuns[V]) freeBlocks() {
	if len(s.Runs) == 0 {
		return
	}

	var bids []block.BID
	for _, r := range s.Runs {
		for _, te := range r {
			bids = append(bids, te.BID)
		}
	}
	s.manager.DeleteBlocks(bids)
}

// IsSmall reports whether this SortedRuns is in small-run form.
func (s *SortedRuns[V]) IsSmall() bool {
	return len(s.Runs) == 0 && len(s.SmallRun) > 0
}

// NumRuns is k, the fan-in of this SortedRuns (0 for the small-run form).
func (s *SortedRuns[V]) NumRuns() int { return len(s.Runs) }

// AddRun appends a freshly written run and its element count, updating the
// running total.
func (s *SortedRuns[V]) AddRun(r Run[V], size int64) {
	s.Runs = append(s.Runs, r)
	s.RunSizes = append(s.RunSizes, size)
	s.Elements += size
}

// SetSmall switches this SortedRuns into small-run form with the given
// fully-sorted slice. Must only be called on an empty SortedRuns.
func (s *SortedRuns[V]) SetSmall(sorted []V) {
	s.SmallRun = sorted
	s.Elements = int64(len(sorted))
}

// Swap exchanges the run-form contents of s and other in place, used by the
// recursive merger to install a freshly reduced run set without allocating
// a new SortedRuns (and without disturbing the shared reference held by
// anyone who Retain()'d s).
func (s *SortedRuns[V]) Swap(other *SortedRuns[V]) {
	s.Runs, other.Runs = other.Runs, s.Runs
	s.RunSizes, other.RunSizes = other.RunSizes, s.RunSizes
}

// Clear frees all held blocks and resets this SortedRuns to empty, for
// reuse after a sorter facade's clear().
func (s *SortedRuns[V]) Clear() {
	s.freeBlocks()
	s.SmallRun = nil
	s.Runs = nil
	s.RunSizes = nil
	s.Elements = 0
}

// TriggerCmp lifts a value comparator to compare two trigger entries by
// their head value, breaking ties by nothing in particular -- callers that
// need the stable_sort behaviour of the original schedule construction
// should sort.SliceStable with this as the Less function.
func TriggerCmp[V any](cmp ordering.Comparator[V]) func(a, b TriggerEntry[V]) bool {
	return func(a, b TriggerEntry[V]) bool {
		return cmp.Less(a.Value, b.Value)
	}
}

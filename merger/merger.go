// Package merger implements the top-level runs merger (C10): it reduces an
// arbitrarily large SortedRuns down to a fan-in the available buffers can
// service in one pass (recursive merging, see reduce.go), then drives the
// final k-way merge with one read-ahead Prefetcher per surviving run.
package merger

import (
	"fmt"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/merge"
	"github.com/flowsort/extsort/ordering"
	"github.com/flowsort/extsort/prefetch"
	"github.com/flowsort/extsort/runs"
)

// MergeStrategy picks which algorithm drives the final k-way merge pass.
type MergeStrategy int

const (
	// LoserTree advances and compares one element at a time via a
	// tournament tree (C5). The default -- fewer comparisons per element
	// and no horizon bookkeeping.
	LoserTree MergeStrategy = iota
	// Horizon uses the bounded-horizon multiway merge (C6): it batches
	// comparisons across whatever is already buffered for each run,
	// deferring a run's next block fetch until the horizon forces it.
	// Pays more comparison work for fewer, larger I/O waits on fan-ins
	// where most runs' buffers tend to drain together.
	Horizon
)

// Options configures a Merger's resource usage.
type Options struct {
	// MaxFanIn bounds how many runs are merged together in the final pass;
	// larger SortedRuns are first reduced via recursive merging.
	MaxFanIn int
	// BuffersPerRun is how many blocks of read-ahead each surviving run
	// gets in the final pass.
	BuffersPerRun int
	// DeviceAware enables the round-robin-by-disk issue order instead of
	// the identity order for each run's prefetcher.
	DeviceAware bool
	// Strategy picks the final-pass merge algorithm.
	Strategy MergeStrategy
}

func (o Options) withDefaults() Options {
	if o.MaxFanIn <= 0 {
		o.MaxFanIn = 64
	}
	if o.BuffersPerRun <= 0 {
		o.BuffersPerRun = 2
	}
	return o
}

// Merger drives the final merge pass of a (possibly just-reduced)
// SortedRuns, delivering its globally sorted elements one at a time.
type Merger[V any] struct {
	cmp     ordering.Comparator[V]
	manager *block.Manager[V]
	rs      *runs.SortedRuns[V]
	opts    Options

	small    []V
	smallPos int

	prefetchers []*prefetch.Prefetcher[V]
	m           *merge.Merger[V]
	hm          *merge.HorizonMerger[V]
}

// prefetchSource adapts a Prefetcher into a merge.HorizonSource: PullBlock
// plus an immediate BlockConsumed stands in for Next, and
// NextScheduledValue stands in for NextHead.
type prefetchSource[V any] struct {
	pf *prefetch.Prefetcher[V]
}

func (s prefetchSource[V]) Next() (*block.Block[V], error) {
	blk, err := s.pf.PullBlock()
	if err == nil {
		s.pf.BlockConsumed()
	}
	return blk, err
}

func (s prefetchSource[V]) NextHead() (V, bool) { return s.pf.NextScheduledValue() }

// New reduces rs in place to at most opts.MaxFanIn runs (if it isn't
// already), then prepares the final merge pass. rs is retained for the
// lifetime of the Merger; callers should not mutate it directly afterward.
func New[V any](cmp ordering.Comparator[V], manager *block.Manager[V], rs *runs.SortedRuns[V], opts Options) (*Merger[V], error) {
	opts = opts.withDefaults()

	mg := &Merger[V]{
		cmp:     cmp,
		manager: manager,
		rs:      rs,
		opts:    opts,
	}

	if rs.IsSmall() {
		mg.small = rs.SmallRun
		return mg, nil
	}

	if err := reduceRecursively(cmp, manager, rs, opts.MaxFanIn); err != nil {
		return nil, fmt.Errorf("merger: recursive reduce: %w", err)
	}

	mg.prefetchers = make([]*prefetch.Prefetcher[V], rs.NumRuns())

	for i, run := range rs.Runs {
		var order []int
		if opts.DeviceAware {
			order = prefetch.DeviceAwareOrder(run, manager.NumDisks())
		} else {
			order = prefetch.IdentityOrder(len(run))
		}

		mg.prefetchers[i] = prefetch.New(manager, run, order, opts.BuffersPerRun)
	}

	switch opts.Strategy {
	case Horizon:
		srcs := make([]merge.HorizonSource[V], len(mg.prefetchers))
		for i, pf := range mg.prefetchers {
			srcs[i] = prefetchSource[V]{pf: pf}
		}
		mg.hm = merge.NewHorizonMerger(cmp, srcs, rs.RunSizes)
	default:
		feeds := make([]merge.BlockFeed[V], len(mg.prefetchers))
		for i, pf := range mg.prefetchers {
			pf := pf
			feeds[i] = func() (*block.Block[V], error) {
				blk, err := pf.PullBlock()
				if err == nil {
					// A block just left the pipeline; let the prefetcher
					// replenish its in-flight read budget by one.
					pf.BlockConsumed()
				}
				return blk, err
			}
		}
		mg.m = merge.New(cmp, feeds, rs.RunSizes)
	}

	return mg, nil
}

// Empty reports whether the merge is complete.
func (mg *Merger[V]) Empty() bool {
	if mg.small != nil {
		return mg.smallPos >= len(mg.small)
	}
	if mg.hm != nil {
		return mg.hm.Empty()
	}
	return mg.m == nil || mg.m.Empty()
}

// Next returns the next element in globally sorted order.
func (mg *Merger[V]) Next() (V, bool, error) {
	if mg.small != nil {
		if mg.smallPos >= len(mg.small) {
			var zero V
			return zero, false, nil
		}
		v := mg.small[mg.smallPos]
		mg.smallPos++
		return v, true, nil
	}

	if mg.hm != nil {
		v, ok := mg.hm.Next()
		if !ok {
			return v, false, mg.hm.Err()
		}
		return v, true, nil
	}

	v, ok := mg.m.Next()
	if !ok {
		return v, false, mg.m.Err()
	}

	return v, true, nil
}

// Size returns the total number of elements the merge will produce.
func (mg *Merger[V]) Size() int64 { return mg.rs.Elements }

// LastPullBlocked reports whether, for any of the surviving runs, that
// run's most recent block pull had to wait on its read (not necessarily
// during the latest Next() call), a heuristic proxy for whether the next
// call is also likely to block. Always false for the small-run
// form, which never touches storage.
func (mg *Merger[V]) LastPullBlocked() bool {
	for _, pf := range mg.prefetchers {
		if pf.LastBlocked() {
			return true
		}
	}
	return false
}

// NumRuns returns the fan-in of the final merge pass (0 for the small-run
// form), after any recursive reduction has already taken place.
func (mg *Merger[V]) NumRuns() int { return mg.rs.NumRuns() }

// Package prefetch implements the read-ahead buffer pool (C4) used by the
// runs merger: given the global consumption order of blocks and a
// (possibly device-aware) issue order, it keeps reads running ahead of
// demand so the merger's pull cursor rarely blocks.
package prefetch

import (
	"errors"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/runs"
)

// ErrExhausted is returned by PullBlock once every scheduled block has
// already been delivered.
var ErrExhausted = errors.New("prefetch: schedule exhausted")

// Prefetcher issues reads from a fixed schedule S (consumption order) ahead
// of demand, using an issue permutation P that may reorder S for better
// device utilization. Correctness never depends on P; only throughput does.
type Prefetcher[V any] struct {
	manager *block.Manager[V]
	seq     []runs.TriggerEntry[V] // S
	issue   []int                 // P, a permutation of indices into seq

	handles     []*block.Handle[V]
	issued      int
	pos         int
	lastBlocked bool
}

// New constructs a prefetcher over seq, issuing blocks in the order given
// by issueOrder (a permutation of len(seq)), keeping at most bufCount reads
// in flight at once.
func New[V any](manager *block.Manager[V], seq []runs.TriggerEntry[V], issueOrder []int, bufCount int) *Prefetcher[V] {
	p := &Prefetcher[V]{
		manager: manager,
		seq:     seq,
		issue:   issueOrder,
		handles: make([]*block.Handle[V], len(seq)),
	}

	n := bufCount
	if n > len(issueOrder) {
		n = len(issueOrder)
	}
	for i := 0; i < n; i++ {
		p.issueOne()
	}

	return p
}

func (p *Prefetcher[V]) issueOne() {
	if p.issued >= len(p.issue) {
		return
	}
	idx := p.issue[p.issued]
	p.handles[idx] = p.manager.ReadAsync(p.seq[idx].BID)
	p.issued++
}

// Empty reports whether every block in S has already been delivered.
func (p *Prefetcher[V]) Empty() bool { return p.pos >= len(p.seq) }

// Pos returns the index into S of the next block PullBlock will deliver.
func (p *Prefetcher[V]) Pos() int { return p.pos }

// NextScheduledValue returns the trigger value of the block at S[pos()] --
// the next block this prefetcher has not yet delivered -- without fetching
// it, and false once the schedule is exhausted. Used by the bounded-horizon
// merge (C6) to compute how far buffered data can be safely merged without
// further I/O: nothing still on disk can compare less than this value,
// since S is sorted by head value.
func (p *Prefetcher[V]) NextScheduledValue() (V, bool) {
	if p.Empty() {
		var zero V
		return zero, false
	}
	return p.seq[p.pos].Value, true
}

// LastBlocked reports whether the most recent PullBlock call had to wait
// for its read to complete, i.e. the read-ahead budget was fully drained
// at the time. Used as a proxy for whether the next pull is likely to
// block too, since the buffer budget rarely recovers within one element.
func (p *Prefetcher[V]) LastBlocked() bool { return p.lastBlocked }

// PullBlock blocks until the next block in S-order is ready and returns it.
func (p *Prefetcher[V]) PullBlock() (*block.Block[V], error) {
	if p.Empty() {
		return nil, ErrExhausted
	}

	h := p.handles[p.pos]
	p.lastBlocked = !h.Ready()
	if err := h.Wait(); err != nil {
		return nil, err
	}

	blk := h.Block()
	p.handles[p.pos] = nil
	p.pos++
	return blk, nil
}

// BlockConsumed signals that a previously delivered buffer is free, letting
// the prefetcher issue the next scheduled read.
func (p *Prefetcher[V]) BlockConsumed() {
	p.issueOne()
}

// IdentityOrder returns P = identity, the fallback issue order used when
// device-aware scheduling is disabled.
func IdentityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// DeviceAwareOrder computes a simple round-robin-by-disk issue order: it
// repeatedly scans the not-yet-picked entries of seq and takes the earliest
// one on each disk in turn, so that reads from distinct disks tend to be
// in flight together instead of the schedule draining one disk before
// moving to the next. This is a heuristic, not a guarantee -- correctness
// of the merge never depends on its quality.
func DeviceAwareOrder[V any](seq []runs.TriggerEntry[V], numDisks int) []int {
	if numDisks <= 1 {
		return IdentityOrder(len(seq))
	}

	byDisk := make([][]int, numDisks)
	for i, te := range seq {
		d := int(te.BID.Disk) % numDisks
		byDisk[d] = append(byDisk[d], i)
	}

	order := make([]int, 0, len(seq))
	for {
		progressed := false
		for d := 0; d < numDisks; d++ {
			if len(byDisk[d]) == 0 {
				continue
			}
			order = append(order, byDisk[d][0])
			byDisk[d] = byDisk[d][1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return order
}

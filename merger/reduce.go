package merger

import (
	"fmt"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/merge"
	"github.com/flowsort/extsort/ordering"
	"github.com/flowsort/extsort/runs"
	"golang.org/x/sync/errgroup"
)

// optimalMergeFactor picks how many runs to fold into one group during a
// single recursive-merge pass, given a fan-in ceiling maxFanIn, so that the
// number of passes needed to bring k runs down to maxFanIn is minimized
// while keeping the groups of a pass as evenly sized as possible -- the
// same balancing goal as STXXL's optimal_merge_factor.
func optimalMergeFactor(k, maxFanIn int) int {
	if k <= maxFanIn {
		return k
	}
	groups := (k + maxFanIn - 1) / maxFanIn
	return (k + groups - 1) / groups
}

// groupResult holds one recursive-merge group's output run, keyed by group
// index so parallel workers can fill it in without touching a shared
// SortedRuns concurrently.
type groupResult[V any] struct {
	run  runs.Run[V]
	size int64
}

// reduceOnce runs one recursive-merge pass over rs in place: it groups the
// current runs into batches of at most maxFanIn and merges each batch into
// a single new run. Groups are independent -- each reads only its own input
// runs and writes only its own fresh output blocks -- so they fan out
// across goroutines via errgroup, then the reduced run set is assembled and
// swapped into rs, freeing the old runs' blocks. Returns the number of runs
// remaining after the pass.
func reduceOnce[V any](cmp ordering.Comparator[V], manager *block.Manager[V], rs *runs.SortedRuns[V], maxFanIn int) (int, error) {
	k := rs.NumRuns()
	if k <= maxFanIn {
		return k, nil
	}

	groupSize := optimalMergeFactor(k, maxFanIn)
	numGroups := (k + groupSize - 1) / groupSize
	results := make([]groupResult[V], numGroups)

	var g errgroup.Group
	for gi := 0; gi < numGroups; gi++ {
		start := gi * groupSize
		end := start + groupSize
		if end > k {
			end = k
		}
		gi, group, sizes := gi, rs.Runs[start:end], rs.RunSizes[start:end]

		g.Go(func() error {
			mergedRun, mergedSize, err := mergeGroup(cmp, manager, group, sizes)
			if err != nil {
				return err
			}
			results[gi] = groupResult[V]{run: mergedRun, size: mergedSize}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("merger: reduce pass: %w", err)
	}

	reduced := runs.New[V](manager)
	for _, r := range results {
		reduced.AddRun(r.run, r.size)
	}

	rs.Swap(reduced)
	reduced.Release() // frees the pre-reduction runs, now held by reduced

	return rs.NumRuns(), nil
}

// reduceRecursively repeatedly calls reduceOnce until rs holds at most
// maxFanIn runs, matching STXXL's merge_recursively.
func reduceRecursively[V any](cmp ordering.Comparator[V], manager *block.Manager[V], rs *runs.SortedRuns[V], maxFanIn int) error {
	for rs.NumRuns() > maxFanIn {
		if _, err := reduceOnce(cmp, manager, rs, maxFanIn); err != nil {
			return err
		}
	}
	return nil
}

// runFeed reads a run's blocks directly through the manager, one at a time
// and in order, waiting synchronously on each. Used during recursive
// reduction, where fan-in is already small and a dedicated prefetcher per
// run would be overkill.
func runFeed[V any](manager *block.Manager[V], run runs.Run[V]) merge.BlockFeed[V] {
	i := 0
	return func() (*block.Block[V], error) {
		if i >= len(run) {
			return nil, fmt.Errorf("merger: run feed exhausted")
		}
		bid := run[i].BID
		i++

		h := manager.ReadAsync(bid)
		if err := h.Wait(); err != nil {
			return nil, err
		}
		return h.Block(), nil
	}
}

// mergeGroup merges the runs in group (with their element counts in sizes)
// into one new run, writing the merged output as freshly allocated blocks.
func mergeGroup[V any](cmp ordering.Comparator[V], manager *block.Manager[V], group []runs.Run[V], sizes []int64) (runs.Run[V], int64, error) {
	feeds := make([]merge.BlockFeed[V], len(group))
	for i, r := range group {
		feeds[i] = runFeed(manager, r)
	}

	m := merge.New(cmp, feeds, sizes)
	blockElems := manager.BlockElems()

	var out runs.Run[V]
	var handles []*block.Handle[V]
	var total int64

	cur := block.NewBlock[V](blockElems)
	curLen := 0

	flush := func() error {
		if curLen == 0 {
			return nil
		}
		if err := verifyBlockSorted(cmp, cur.Elems[:curLen]); err != nil {
			return err
		}
		for j := curLen; j < blockElems; j++ {
			cur.Elems[j] = cmp.Max()
		}

		// Intermediate merge output is transient -- it is read back once by
		// the next pass (or the final merge) and then freed -- so it does
		// not need striping across disks the way a real run does; SingleDisk
		// keeps it off the rotation real runs compete for.
		bids := manager.NewBlocks(block.SingleDisk, 1)
		out = append(out, runs.TriggerEntry[V]{BID: bids[0], Value: cur.First()})
		handles = append(handles, manager.WriteAsync(bids[0], cur))

		cur = block.NewBlock[V](blockElems)
		curLen = 0
		return nil
	}

	for {
		v, ok := m.Next()
		if !ok {
			break
		}
		cur.Elems[curLen] = v
		curLen++
		total++
		if curLen == blockElems {
			if err := flush(); err != nil {
				return nil, 0, err
			}
		}
	}
	if err := m.Err(); err != nil {
		return nil, 0, err
	}
	if err := flush(); err != nil {
		return nil, 0, err
	}

	if err := block.WaitAll(handles...); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

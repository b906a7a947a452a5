//go:build extsort_checks

package merger

import (
	"github.com/flowsort/extsort/merge"
	"github.com/flowsort/extsort/ordering"
)

// verifyBlockSorted asserts elems -- the just-filled portion of a merge
// output block -- is sorted before it is written out. Compiled in only
// under the extsort_checks build tag.
func verifyBlockSorted[V any](cmp ordering.Comparator[V], elems []V) error {
	return merge.CheckSortedRuns(cmp, [][]V{elems})
}

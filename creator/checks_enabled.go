//go:build extsort_checks

package creator

import (
	"github.com/flowsort/extsort/merge"
	"github.com/flowsort/extsort/ordering"
)

// verifyRunSorted asserts elems is sorted before it is spilled as a run.
// Compiled in only under the extsort_checks build tag.
func verifyRunSorted[V any](cmp ordering.Comparator[V], elems []V) error {
	return merge.CheckSortedRuns(cmp, [][]V{elems})
}

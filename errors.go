package extsort

import (
	"errors"

	"github.com/flowsort/extsort/merge"
)

// ErrBadParameter is returned for invalid configuration (e.g. a zero
// BlockElems, an inconsistent Comparator) and for an out-of-range run index
// passed to NumElemsInRun.
var ErrBadParameter = errors.New("extsort: bad parameter")

// ErrIO wraps a failure from the underlying block storage (read, write,
// allocation, or relocation).
var ErrIO = errors.New("extsort: io error")

// ErrLogic marks API misuse by the caller: a call that is not valid in the
// Sorter's current state (e.g. Push after Sort, Advance before Sort, Rewind
// before Sort or after a FinishClear'd result was released).
var ErrLogic = errors.New("extsort: internal logic error")

// ErrOrderViolation is returned by the extsort_checks build's runtime
// verification when a run or merge output turns out not to be sorted.
// It is the same sentinel merge.CheckSortedRuns wraps, so errors.Is works
// whether the check fired in the run creator or the runs merger.
var ErrOrderViolation = merge.ErrOrderViolation

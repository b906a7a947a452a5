package extsort

import "github.com/flowsort/extsort/ordering"

// Comparator defines the total order a Sorter sorts by. Min and Max must
// return sentinel values outside the range of any real record: Min must
// compare less than every real value, Max greater than every real value.
// They are used to pad the last block of a run and to seed the merge
// tournament, never surfaced to callers as actual output.
type Comparator[V any] = ordering.Comparator[V]

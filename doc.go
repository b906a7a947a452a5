// Package extsort implements an external-memory (two-phase) sorter over
// fixed-size records: run formation accumulates and sorts records up to a
// working-memory budget, spilling sorted runs to backing disk files, and
// a runs merger streams them back out in globally sorted order via a
// tournament-tree k-way merge, recursively reducing fan-in first when
// there are more runs than the merge can service in one pass.
//
// Open a Sorter with a Comparator and a Codec describing the record type,
// Push records in any order, call Sort to switch to output mode, then
// drain with Current/Advance until Empty.
package extsort

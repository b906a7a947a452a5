// Package ordering defines the strict weak ordering capability that every
// other package in this module is built on: a comparator plus the two
// sentinel values used to pad run tails and to seed order checking.
package ordering

import "fmt"

// Comparator is the capability a caller supplies to order a stream of
// records. Less must be a strict weak ordering. Min must compare strictly
// less than every legal value and Max strictly greater; both are used only
// as sentinels (block padding, empty-cursor emulation), never stored as real
// data.
type Comparator[V any] interface {
	Less(a, b V) bool
	Min() V
	Max() V
}

// Verify checks the sentinel consistency required at construction time:
// Less(min,min)=false, Less(min,max)=true, Less(max,min)=false. Violating
// comparators are a BadParameter condition, not a panic, since callers can
// recover from a constructor returning an error.
func Verify[V any](cmp Comparator[V]) error {
	min, max := cmp.Min(), cmp.Max()
	if cmp.Less(min, min) {
		return fmt.Errorf("ordering: comparator violates Less(min,min)=false")
	}
	if !cmp.Less(min, max) {
		return fmt.Errorf("ordering: comparator violates Less(min,max)=true")
	}
	if cmp.Less(max, min) {
		return fmt.Errorf("ordering: comparator violates Less(max,min)=false")
	}
	if cmp.Less(max, max) {
		return fmt.Errorf("ordering: comparator violates Less(max,max)=false")
	}
	return nil
}

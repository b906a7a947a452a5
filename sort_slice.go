package extsort

import "github.com/flowsort/extsort/block"

// SortSlice sorts values in place using the external-memory sorter with dir
// as the scratch directory for its backing files, draining the result back
// into values. It is
// the Go counterpart of STXXL's free-standing sort() convenience wrapper
// over any random-access sequence: useful when the whole input already
// fits in a slice and only the sort algorithm (not the storage layer) is
// wanted, e.g. for testing Comparator implementations against the real
// merge path instead of sort.Slice.
func SortSlice[V any](values []V, cmp Comparator[V], codec block.Codec[V], dir string, memoryBlocks int) error {
	opts := DefaultOptions()
	opts.Dir = dir
	opts.MemoryBlocks = memoryBlocks

	s, err := Open[V](cmp, codec, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, v := range values {
		if err := s.Push(v); err != nil {
			return err
		}
	}
	if err := s.Sort(); err != nil {
		return err
	}

	i := 0
	for !s.Empty() {
		values[i] = s.Current()
		i++
		if err := s.Advance(); err != nil {
			return err
		}
	}

	return nil
}

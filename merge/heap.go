package merge

import "github.com/flowsort/extsort/ordering"

// cursorHeap is a binary min-heap over run cursors, implementing the
// tournament-tree ordering a k-way merge needs: the run whose current value
// is smallest (and, among exhausted cursors, any exhausted one) always sits
// at index 0. This is a direct adaptation of the teacher's Iters heap --
// same up/down/swap shape -- with the key comparison replaced by a value
// Comparator and "sort exhausted cursors to the back" driven by the
// cursor's own exhausted flag instead of an iterator's.
type cursorHeap[V any] struct {
	cs  []*cursor[V]
	cmp ordering.Comparator[V]
}

func (h *cursorHeap[V]) Len() int { return len(h.cs) }

func (h *cursorHeap[V]) less(i, j int) bool {
	ei, ej := h.cs[i].exhausted, h.cs[j].exhausted
	if ei != ej {
		return !ei
	}
	return h.cmp.Less(h.cs[i].current, h.cs[j].current)
}

func (h *cursorHeap[V]) swap(i, j int) { h.cs[i], h.cs[j] = h.cs[j], h.cs[i] }

func (h *cursorHeap[V]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *cursorHeap[V]) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > i0
}

// fix restores heap order after the root's current/exhausted fields change.
func (h *cursorHeap[V]) fix(i int) {
	if !h.down(i, h.Len()) {
		h.up(i)
	}
}

func (h *cursorHeap[V]) init() {
	n := h.Len()
	for i := n/2 - 1; i >= 0; i-- {
		h.down(i, n)
	}
}

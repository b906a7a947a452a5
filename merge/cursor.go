package merge

import "github.com/flowsort/extsort/block"

// BlockFeed supplies the next block of one run, in run order. A run's last
// block may be shorter than BlockElems; the feed is responsible for only
// ever returning blocks that belong to this run.
type BlockFeed[V any] func() (*block.Block[V], error)

// cursor walks one run's blocks one element at a time, stopping after
// exactly size elements regardless of block padding (the creator pads a
// run's final block out to BlockElems with the comparator's Max()
// sentinel, so size -- not block boundaries -- is the source of truth for
// where a run actually ends).
type cursor[V any] struct {
	feed BlockFeed[V]

	blk *block.Block[V]
	idx int

	remaining int64
	current   V
	exhausted bool
	err       error
}

func newCursor[V any](feed BlockFeed[V], size int64, sentinel V) *cursor[V] {
	c := &cursor[V]{feed: feed, remaining: size, current: sentinel}
	c.fill()
	return c
}

func (c *cursor[V]) fill() {
	if c.err != nil || c.remaining <= 0 {
		c.exhausted = true
		return
	}

	if c.blk == nil || c.idx >= len(c.blk.Elems) {
		blk, err := c.feed()
		if err != nil {
			c.err = err
			c.exhausted = true
			return
		}
		c.blk = blk
		c.idx = 0
	}

	c.current = c.blk.Elems[c.idx]
}

func (c *cursor[V]) advance() {
	c.idx++
	c.remaining--
	c.fill()
}

package interp

import (
	"container/list"

	"github.com/rcliao/timealign/pkg/tensor"
)

// chunkCache is a bounded LRU over loaded chunk tensors, keyed by chunk
// index. It trades memory for repeated-query throughput and is only used
// when a Screen is built with WithChunkCache.
type chunkCache struct {
	max  int
	ll   *list.List
	byID map[int]*list.Element
}

type cacheEntry struct {
	id   int
	data *tensor.Dense
}

func newChunkCache(max int) *chunkCache {
	return &chunkCache{
		max:  max,
		ll:   list.New(),
		byID: make(map[int]*list.Element),
	}
}

func (c *chunkCache) get(id int) (*tensor.Dense, bool) {
	el, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).data, true
}

func (c *chunkCache) put(id int, d *tensor.Dense) {
	if el, ok := c.byID[id]; ok {
		el.Value.(*cacheEntry).data = d
		c.ll.MoveToFront(el)
		return
	}
	c.byID[id] = c.ll.PushFront(&cacheEntry{id: id, data: d})
	if c.ll.Len() > c.max {
		last := c.ll.Back()
		c.ll.Remove(last)
		delete(c.byID, last.Value.(*cacheEntry).id)
	}
}

package ldevents

import (
	"container/list"
)

// A very simple LRU cache of string keys, used by the event processor to remember which
// context keys it has already seen since the last index-event flush.
type lruCache struct {
	values   map[string]*list.Element
	lruList  *list.List
	capacity int
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		values:   make(map[string]*list.Element),
		lruList:  list.New(),
		capacity: capacity,
	}
}

func (c *lruCache) clear() {
	c.values = make(map[string]*list.Element)
	c.lruList.Init()
}

// Stores a value in the cache, returning true (and marking it as recently used) if it was
// already there, or false if it was newly added.
func (c *lruCache) add(value string) bool {
	if c.capacity == 0 {
		return false
	}
	if e, ok := c.values[value]; ok {
		c.lruList.MoveToFront(e)
		return true
	}
	for len(c.values) >= c.capacity {
		oldest := c.lruList.Back()
		delete(c.values, oldest.Value.(string))
		c.lruList.Remove(oldest)
	}
	c.values[value] = c.lruList.PushFront(value)
	return false
}

package cache

import (
	"container/list"
	"sync"
	"time"
)

type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}

// Item is a cache slot. Items with refs > 0 are pinned: they never expire
// and are never evicted for capacity.
type Item struct {
	Key        string
	Value      interface{}
	Expiration time.Time
	refs       int
}

func (i *Item) expired(now time.Time) bool {
	return i.refs == 0 && !i.Expiration.IsZero() && now.After(i.Expiration)
}

type LRUCache struct {
	capacity  int
	items     map[string]*list.Element
	evictList *list.List
	mu        sync.RWMutex
	now       func() time.Time
}

func New(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

func (c *LRUCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*Item)

		if item.expired(c.now()) {
			c.removeElement(elem)
			return nil, false
		}

		c.evictList.MoveToFront(elem)
		return item.Value, true
	}

	return nil, false
}

// Set stores value. An unpinned item expires ttl from now; ttl <= 0 never expires.
func (c *LRUCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*Item)
		item.Value = value
		item.Expiration = c.expiration(ttl)
		c.evictList.MoveToFront(elem)
		return
	}

	item := &Item{
		Key:        key,
		Value:      value,
		Expiration: c.expiration(ttl),
	}

	elem := c.evictList.PushFront(item)
	c.items[key] = elem

	if c.evictList.Len() > c.capacity {
		c.removeOldest()
	}
}

// Retain pins key. Returns false when key is not cached.
func (c *LRUCache) Retain(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	item := elem.Value.(*Item)
	item.refs++
	c.evictList.MoveToFront(elem)
	return true
}

// Release unpins key. When the last pin is released the item expires ttl from now.
func (c *LRUCache) Release(key string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return
	}
	item := elem.Value.(*Item)
	if item.refs > 0 {
		item.refs--
	}
	if item.refs == 0 {
		item.Expiration = c.expiration(ttl)
	}
}

// Refs returns the number of pins on key.
func (c *LRUCache) Refs(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if elem, ok := c.items[key]; ok {
		return elem.Value.(*Item).refs
	}
	return 0
}

func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evictList.Len()
}

// Range calls fn for every live item, most recently used first.
// fn must not call back into the cache.
func (c *LRUCache) Range(fn func(key string, value interface{}) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	for elem := c.evictList.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*Item)
		if item.expired(now) {
			continue
		}
		if !fn(item.Key, item.Value) {
			return
		}
	}
}

func (c *LRUCache) expiration(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

// removeOldest evicts the least recently used unpinned item.
func (c *LRUCache) removeOldest() {
	for elem := c.evictList.Back(); elem != nil; elem = elem.Prev() {
		if elem.Value.(*Item).refs == 0 {
			c.removeElement(elem)
			return
		}
	}
}

func (c *LRUCache) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	item := elem.Value.(*Item)
	delete(c.items, item.Key)
}

// CleanExpired removes every expired item and returns how many were removed.
func (c *LRUCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var toRemove []*list.Element

	for elem := c.evictList.Back(); elem != nil; elem = elem.Prev() {
		if elem.Value.(*Item).expired(now) {
			toRemove = append(toRemove, elem)
		}
	}

	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

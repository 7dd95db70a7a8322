package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds per-owner views with a TTL and a global size bound.
// Entries of one owner are indexed together so a write by that owner drops
// them without scanning the whole cache.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	lru         *list.List
	owners      map[int64]map[string]*list.Element
	generations map[int64]uint64
}

type entry[T any] struct {
	owner     int64
	key       string
	data      T
	expiresAt time.Time
}

// NewLRUCache creates a cache of at most maxSize entries, each living ttl.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize:     maxSize,
		ttl:         ttl,
		now:         time.Now,
		lru:         list.New(),
		owners:      make(map[int64]map[string]*list.Element),
		generations: make(map[int64]uint64),
	}
}

func (c *LRUCache[T]) Get(owner int64, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.owners[owner][key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if c.now().After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return e.data, true
}

// Generation is the owner's invalidation count. Read it before loading the
// data a view is built from and pass it to Set.
func (c *LRUCache[T]) Generation(owner int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[owner]
}

// Set stores data unless owner was invalidated since gen was read, and
// reports whether it did.
func (c *LRUCache[T]) Set(owner int64, key string, data T, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[owner] != gen {
		return false
	}

	e := &entry[T]{owner: owner, key: key, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.owners[owner][key]; ok {
		elem.Value = e
		c.lru.MoveToFront(elem)
		return true
	}

	keys := c.owners[owner]
	if keys == nil {
		keys = make(map[string]*list.Element)
		c.owners[owner] = keys
	}
	keys[key] = c.lru.PushFront(e)

	for c.lru.Len() > c.maxSize {
		c.remove(c.lru.Back())
	}
	return true
}

// Invalidate drops every entry of owner and rejects Sets prepared before the
// call. It returns the number of entries dropped.
func (c *LRUCache[T]) Invalidate(owner int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[owner]++
	keys := c.owners[owner]
	n := len(keys)
	for _, elem := range keys {
		c.lru.Remove(elem)
	}
	delete(c.owners, owner)
	return n
}

func (c *LRUCache[T]) remove(elem *list.Element) {
	e := elem.Value.(*entry[T])
	c.lru.Remove(elem)
	keys := c.owners[e.owner]
	delete(keys, e.key)
	if len(keys) == 0 {
		delete(c.owners, e.owner)
	}
}

// CleanExpired removes all expired entries and returns how many it removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			c.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *LRUCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

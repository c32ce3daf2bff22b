// Package ttlcache implements a generic, thread-safe expiring cache.
//
// Entries carry an insertion timestamp and are evicted lazily: a Get past
// the TTL deletes the entry and reports a miss. There is no background
// sweeper and no entry-count bound; the expected key space (one entry per
// analyzed repository) is small.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val        V
	insertedAt time.Time
}

// Cache is a generic, thread-safe expiring cache.
// K must be comparable (map key constraint), V can be any type.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[K]entry[V]
	now   func() time.Time
}

// New creates a cache whose entries expire ttl after insertion.
// Panics if ttl <= 0.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	if ttl <= 0 {
		panic("ttlcache: ttl must be > 0")
	}
	return &Cache[K, V]{
		ttl:   ttl,
		items: make(map[K]entry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value by key. An entry older than the TTL is deleted and
// reported as a miss; a later Get for the same key stays a miss until a new
// Set. O(1).
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.val, true
}

// Set inserts or replaces a value, resetting its insertion timestamp. O(1).
func (c *Cache[K, V]) Set(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{val: val, insertedAt: c.now()}
}

// Invalidate removes a key. Returns true if the key existed. O(1).
func (c *Cache[K, V]) Invalidate(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V])
}

// Len returns the number of entries, including any not yet lazily evicted.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

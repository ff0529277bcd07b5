// Package cache holds the adapter's in-memory response cache.
//
// Entries expire after a fixed TTL and are removed lazily when a lookup finds
// them expired. When an insert pushes the entry count over capacity, the
// single globally-oldest entry (by insertion time) is evicted. Reads do not
// refresh an entry's position, so this is age-based eviction, not LRU.
package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 1000
)

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// Cache is a TTL- and size-bounded key/value store. It is safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = oldest insertion
	now      func() time.Time

	onEvict func(key string)
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock overrides the time source.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

// WithEvictionHook is called (outside the lock) with the key of every
// capacity eviction.
func WithEvictionHook[V any](fn func(key string)) Option[V] {
	return func(c *Cache[V]) { c.onEvict = fn }
}

// New creates a cache. Non-positive ttl or capacity fall back to the defaults.
func New[V any](ttl time.Duration, capacity int, opts ...Option[V]) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[V]{
		ttl:      ttl,
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key while its age is below the TTL.
// An expired entry is deleted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.now().Sub(e.insertedAt) >= c.ttl {
		c.removeElement(el)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key stamped with the current time. Overwriting a key
// restamps it as the newest entry.
func (c *Cache[V]) Put(key string, value V) {
	var evicted string
	var didEvict bool

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	el := c.order.PushBack(&entry[V]{key: key, value: value, insertedAt: c.now()})
	c.items[key] = el

	if len(c.items) > c.capacity {
		oldest := c.order.Front()
		evicted = oldest.Value.(*entry[V]).key
		c.removeElement(oldest)
		didEvict = true
	}
	c.mu.Unlock()

	if didEvict && c.onEvict != nil {
		c.onEvict(evicted)
	}
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Clear drops every entry and returns how many were held.
func (c *Cache[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = make(map[string]*list.Element)
	c.order.Init()
	return n
}

// Len counts stored entries, including expired ones not yet looked up.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

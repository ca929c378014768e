// Package cache provides a small in-process TTL cache used by the registry
// and skill clients. Entries expire lazily at read time; there is no
// background sweep and the cache is discarded when the process exits.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

type Cache[V any] struct {
	mu      sync.Mutex
	items   map[string]entry[V]
	nowFunc func() time.Time
}

func New[V any]() *Cache[V] {
	return &Cache[V]{items: map[string]entry[V]{}, nowFunc: time.Now}
}

// Get returns the cached value for key. An entry past its deadline is
// deleted by the read that discovers it.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.nowFunc().After(e.expires) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expires: c.nowFunc().Add(ttl)}
}

func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Clear removes the given keys, or everything when called with none.
func (c *Cache[V]) Clear(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.items = map[string]entry[V]{}
		return
	}
	for _, k := range keys {
		delete(c.items, k)
	}
}

// GetOrCompute returns the cached value or runs compute and stores its
// result under ttl. It is not single-flight: two concurrent misses both
// compute and the later write wins. Acceptable for the low-concurrency,
// read-mostly lookups this backs.
func (c *Cache[V]) GetOrCompute(key string, ttl time.Duration, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

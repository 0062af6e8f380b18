// Package cache provides a small TTL map used to remember recently processed messages
package cache

import (
	"sync"
	"time"
)

// item is a cached value with expiration
type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a mutex-guarded in-memory map whose entries expire after a TTL
type Cache[V any] struct {
	items map[string]item[V]
	mutex sync.Mutex
	now   func() time.Time
}

// New creates a new cache instance
func New[V any]() *Cache[V] {
	return &Cache[V]{
		items: make(map[string]item[V]),
		now:   time.Now,
	}
}

// Get retrieves a live entry, dropping it if it has expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero V
	it, exists := c.items[key]
	if !exists {
		return zero, false
	}
	if !c.now().Before(it.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return it.value, true
}

// Set stores an entry with TTL, replacing any previous value
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = item[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Delete removes an entry
func (c *Cache[V]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Purge drops every expired entry and returns how many were removed
func (c *Cache[V]) Purge() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len counts stored entries, including expired ones not yet purged
func (c *Cache[V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}

// Clear removes all entries
func (c *Cache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]item[V])
}

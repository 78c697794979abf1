package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds a cache created without an explicit size
const DefaultMaxEntries = 256

type entry struct {
	value   any
	expires time.Time
}

// Cache is an in-memory TTL cache. When full, Set first drops expired entries and
// then the entry closest to expiry.
type Cache struct {
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	mu         sync.RWMutex
}

// NewCache creates a new cache with the specified TTL
func NewCache(ttl time.Duration) *Cache {
	return NewBoundedCache(ttl, DefaultMaxEntries)
}

// NewBoundedCache creates a cache holding at most maxEntries values
func NewBoundedCache(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get retrieves a value from the cache
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

// Set stores a value in the cache
func (c *Cache) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = entry{value: val, expires: now.Add(c.ttl)}
}

// Delete removes a key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked makes room for one entry. Caller must hold c.mu.
func (c *Cache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.expires.Before(oldest) {
			oldestKey, oldest = k, e.expires
		}
	}
	if len(c.entries) >= c.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

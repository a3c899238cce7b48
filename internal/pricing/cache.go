package pricing

import (
	"sync"
	"time"
)

// DefaultTTL is how long a resolved price stays fresh.
const DefaultTTL = time.Hour

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache is a process-wide TTL cache for resolved prices. Entries expire on
// read; concurrent writers for the same key race harmlessly because every
// writer computes the same value from the same catalog inputs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates an empty price cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or false when absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Put stores value under key for ttl.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

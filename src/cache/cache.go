package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a small TTL loader cache for read-mostly configuration such as
// the global trade settings. Slightly stale values (up to the TTL) are fine
// for every reader; a single mutex also keeps concurrent loads from
// stampeding the loader.
type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]entry
}

func New() *Cache {
	return &Cache{
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Get returns the cached value for key, invoking loader when the entry is
// missing or expired. Loader errors are not cached.
func (c *Cache) Get(key string, ttl time.Duration, loader func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		return e.value, nil
	}

	value, err := loader()
	if err != nil {
		return nil, err
	}

	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return value, nil
}

// Invalidate drops one key so the next Get reloads it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

package store

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/casepulse/casepulse/internal/database"
)

// CacheStats reports memory-cache effectiveness.
type CacheStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Size       int       `json:"size"`
	LastAccess time.Time `json:"last_access"`
}

// memoryCache fronts the durable store with a bounded TTL cache keyed by
// canonical case identity.
type memoryCache struct {
	cache   *gocache.Cache
	mu      sync.Mutex
	stats   CacheStats
	maxSize int
}

func newMemoryCache(maxSize int, ttl time.Duration) *memoryCache {
	return &memoryCache{
		cache:   gocache.New(ttl, ttl*2),
		maxSize: maxSize,
	}
}

func (c *memoryCache) Get(key string) (*database.Case, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.LastAccess = time.Now()

	if data, found := c.cache.Get(key); found {
		if record, ok := data.(*database.Case); ok {
			c.stats.Hits++
			return record.Clone(), true
		}
	}

	c.stats.Misses++
	return nil, false
}

func (c *memoryCache) Set(key string, record *database.Case) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache.ItemCount() >= c.maxSize {
		c.removeOldest()
	}
	// Stored as a copy: the caller keeps mutating its own record.
	c.cache.Set(key, record.Clone(), gocache.DefaultExpiration)
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Delete(key)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.stats = CacheStats{}
}

func (c *memoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.cache.ItemCount()
	return stats
}

// removeOldest evicts the entry closest to expiry. Called with the lock
// held.
func (c *memoryCache) removeOldest() {
	items := c.cache.Items()
	if len(items) == 0 {
		return
	}

	var oldestKey string
	var oldestExpiry int64
	for key, item := range items {
		if oldestKey == "" || item.Expiration < oldestExpiry {
			oldestKey = key
			oldestExpiry = item.Expiration
		}
	}

	if oldestKey != "" {
		c.cache.Delete(oldestKey)
	}
}

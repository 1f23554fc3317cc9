package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/starford/gtdspace/internal/blocks"
	"github.com/starford/gtdspace/internal/marker"
)

const (
	DefaultCacheTTL        = 3 * time.Second
	DefaultCacheMaxEntries = 100
)

type cacheEntry struct {
	blocks []blocks.Block
	at     time.Time
}

// Cache memoises processed block lists for a short time. Expired entries
// are swept only when the cache grows past its size limit.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewCache returns a cache. Non-positive arguments select the defaults.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	return &Cache{ttl: ttl, max: maxEntries, now: time.Now, entries: make(map[string]cacheEntry)}
}

// CacheKey builds the structural key: block count, marker count and a short
// hash of the marker substrings plus the full text.
func CacheKey(blockCount int, tokens []marker.Token, text string) string {
	h := xxhash.New()
	for _, t := range tokens {
		_, _ = h.WriteString(t.Text)
	}
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(text)
	return fmt.Sprintf("%d:%d:%s", blockCount, len(tokens), fmt.Sprintf("%016x", h.Sum64())[:10])
}

// Get returns a fresh entry.
func (c *Cache) Get(key string) ([]blocks.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.at) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return append([]blocks.Block(nil), e.blocks...), true
}

// Put stores an entry.
func (c *Cache) Put(key string, bs []blocks.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key] = cacheEntry{blocks: append([]blocks.Block(nil), bs...), at: now}
	if len(c.entries) <= c.max {
		return
	}
	for k, e := range c.entries {
		if now.Sub(e.at) >= c.ttl {
			delete(c.entries, k)
		}
	}
	for len(c.entries) > c.max {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldest == "" || e.at.Before(oldestAt) {
				oldest, oldestAt = k, e.at
			}
		}
		delete(c.entries, oldest)
	}
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len reports the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

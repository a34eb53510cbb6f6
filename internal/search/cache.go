// Package search orchestrates media lookups across configured services and
// caches recent results.
package search

import (
	"strings"
	"sync"
	"time"

	"github.com/chatarr/chatarr/internal/media"
)

// DefaultCacheTTL is how long search results stay fresh.
const DefaultCacheTTL = 5 * time.Minute

// Cache holds normalized search results keyed by media kind and query,
// with per-entry expiry. Expired entries are evicted lazily on Get and in
// bulk by Sweep.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]cacheEntry
	ttl    time.Duration
	hits   int64
	misses int64
}

type cacheEntry struct {
	results   []media.Result
	createdAt time.Time
	expiresAt time.Time
}

// CacheStats is a snapshot of cache effectiveness counters.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Entries int     `json:"entries"`
	HitRate float64 `json:"hitRate"`
}

// NewCache creates a cache with the given default TTL (0 uses DefaultCacheTTL).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		items: make(map[string]cacheEntry),
		ttl:   ttl,
	}
}

// CacheKey builds the canonical cache key: the query is lower-cased,
// trimmed, and internal whitespace collapsed to single spaces.
func CacheKey(kind media.Kind, query string) string {
	return string(kind) + ":" + NormalizeQuery(query)
}

// NormalizeQuery canonicalizes a search query for cache keying.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get returns the cached results for a key, or a miss. An expired entry
// behaves as a miss and is evicted on the spot.
func (c *Cache) Get(kind media.Kind, query string) ([]media.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	results, ok := c.lookupLocked(CacheKey(kind, query))
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return results, ok
}

// GetBoth answers a both-kind lookup: a stored both entry wins, and
// failing that a live movie entry plus a live series entry combine. A
// partial cache is a miss, so it never narrows the result set. The
// whole lookup counts as exactly one hit or one miss.
func (c *Cache) GetBoth(query string) ([]media.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if results, ok := c.lookupLocked(CacheKey(media.KindBoth, query)); ok {
		c.hits++
		return results, true
	}

	movies, okMovies := c.lookupLocked(CacheKey(media.KindMovie, query))
	if okMovies {
		if series, okSeries := c.lookupLocked(CacheKey(media.KindSeries, query)); okSeries {
			c.hits++
			combined := make([]media.Result, 0, len(movies)+len(series))
			combined = append(combined, movies...)
			combined = append(combined, series...)
			return combined, true
		}
	}

	c.misses++
	return nil, false
}

// lookupLocked fetches a live entry, evicting it if expired. The caller
// holds the write lock and owns the hit/miss accounting.
func (c *Cache) lookupLocked(key string) ([]media.Result, bool) {
	entry, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return entry.results, true
}

// Set stores results under a key with the default TTL.
func (c *Cache) Set(kind media.Kind, query string, results []media.Result) {
	c.SetWithTTL(kind, query, results, c.ttl)
}

// SetWithTTL stores results under a key with a custom TTL.
func (c *Cache) SetWithTTL(kind media.Kind, query string, results []media.Result, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[CacheKey(kind, query)] = cacheEntry{
		results:   results,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// ExtendTTL pushes out the expiry of a live entry. It fails on missing or
// already-expired entries.
func (c *Cache) ExtendTTL(kind media.Kind, query string, ttl time.Duration) bool {
	key := CacheKey(kind, query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return false
	}

	entry.expiresAt = time.Now().Add(ttl)
	c.items[key] = entry
	return true
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(kind media.Kind, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, CacheKey(kind, query))
}

// Clear removes all entries and resets the hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheEntry)
	c.hits = 0
	c.misses = 0
}

// Sweep evicts all expired entries and returns how many were removed.
// It runs on a periodic schedule to bound memory for keys that are never
// re-queried.
func (c *Cache) Sweep() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Keys returns the keys currently held, expired or not.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for key := range c.items {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.items),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

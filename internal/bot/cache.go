package bot

import (
	"container/list"
	"time"
)

const (
	defaultCacheTTL        = 24 * time.Hour
	defaultCacheMaxEntries = 500
)

// CacheOption mutates summary cache configuration.
type CacheOption func(*SummaryCache)

// WithCacheTTL sets how long a cached summary stays valid.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(cache *SummaryCache) {
		if ttl > 0 {
			cache.ttl = ttl
		}
	}
}

// WithCacheMaxEntries sets the cache capacity.
func WithCacheMaxEntries(maxEntries int) CacheOption {
	return func(cache *SummaryCache) {
		if maxEntries > 0 {
			cache.maxEntries = maxEntries
		}
	}
}

// WithCacheClock injects a clock, used by tests to drive expiry.
func WithCacheClock(clock func() time.Time) CacheOption {
	return func(cache *SummaryCache) {
		if clock != nil {
			cache.clock = clock
		}
	}
}

// SummaryCache stores generated video summaries keyed by bvid, bounded by
// an LRU eviction policy and a per-entry TTL.
//
// Only the default summary variant is cacheable; answers to specific
// questions never enter the cache. The cache is owned by the single pipeline
// goroutine and carries no internal locking; see Monitor for the ownership
// model.
type SummaryCache struct {
	ttl        time.Duration
	maxEntries int
	clock      func() time.Time

	entries map[string]*list.Element
	lru     *list.List

	hits   uint64
	misses uint64
}

type summaryEntry struct {
	bvid      string
	text      string
	expiresAt time.Time
}

// CacheStats is a read-only snapshot of cache counters.
type CacheStats struct {
	Size       int
	MaxEntries int
	Hits       uint64
	Misses     uint64
}

// NewSummaryCache creates a summary cache with bounded in-memory storage.
func NewSummaryCache(options ...CacheOption) *SummaryCache {
	cache := &SummaryCache{
		ttl:        defaultCacheTTL,
		maxEntries: defaultCacheMaxEntries,
		clock:      time.Now,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
	}
	for _, option := range options {
		option(cache)
	}

	return cache
}

// Get returns the cached summary for one bvid.
//
// Expiry is checked before the entry is promoted: an expired entry is removed
// and reported as a miss, never returned. A hit moves the entry to the
// most-recently-used position.
func (c *SummaryCache) Get(bvid string) (string, bool) {
	element, exists := c.entries[bvid]
	if !exists {
		c.misses++
		return "", false
	}

	entry := element.Value.(*summaryEntry)
	if !c.clock().Before(entry.expiresAt) {
		c.remove(element)
		c.misses++
		return "", false
	}

	c.lru.MoveToFront(element)
	c.hits++

	return entry.text, true
}

// Put stores a summary for one bvid at the most-recently-used position with
// a fresh expiry, evicting least-recently-used entries first when the cache
// is at capacity.
func (c *SummaryCache) Put(bvid, text string) {
	if element, exists := c.entries[bvid]; exists {
		c.remove(element)
	}
	for c.lru.Len() >= c.maxEntries {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.remove(back)
	}

	entry := &summaryEntry{
		bvid:      bvid,
		text:      text,
		expiresAt: c.clock().Add(c.ttl),
	}
	c.entries[bvid] = c.lru.PushFront(entry)
}

// Stats returns current cache counters.
func (c *SummaryCache) Stats() CacheStats {
	return CacheStats{
		Size:       c.lru.Len(),
		MaxEntries: c.maxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

func (c *SummaryCache) remove(element *list.Element) {
	entry := element.Value.(*summaryEntry)
	c.lru.Remove(element)
	delete(c.entries, entry.bvid)
}

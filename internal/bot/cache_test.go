package bot

import (
	"testing"
	"time"
)

func TestSummaryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := NewSummaryCache(WithCacheMaxEntries(2))

	cache.Put("BV1aaaaaaaaa", "summary a")
	cache.Put("BV1bbbbbbbbb", "summary b")

	if _, found := cache.Get("BV1aaaaaaaaa"); !found {
		t.Fatal("expected hit for BV1aaaaaaaaa")
	}

	// A is now most recently used, so inserting C must evict B.
	cache.Put("BV1ccccccccc", "summary c")

	if _, found := cache.Get("BV1bbbbbbbbb"); found {
		t.Fatal("expected BV1bbbbbbbbb to be evicted")
	}
	if _, found := cache.Get("BV1aaaaaaaaa"); !found {
		t.Fatal("expected BV1aaaaaaaaa to survive eviction")
	}
	if _, found := cache.Get("BV1ccccccccc"); !found {
		t.Fatal("expected BV1ccccccccc to be present")
	}
	if stats := cache.Stats(); stats.Size != 2 {
		t.Fatalf("size = %d, want 2", stats.Size)
	}
}

func TestSummaryCacheNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	cache := NewSummaryCache(WithCacheMaxEntries(3))
	keys := []string{"BV1a", "BV1b", "BV1c", "BV1d", "BV1e", "BV1a"}
	for _, key := range keys {
		cache.Put(key, "summary")
		if stats := cache.Stats(); stats.Size > 3 {
			t.Fatalf("size = %d after put(%s), want <= 3", stats.Size, key)
		}
	}
}

func TestSummaryCacheExpiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	cache := NewSummaryCache(
		WithCacheTTL(time.Minute),
		WithCacheClock(func() time.Time { return now }),
	)

	cache.Put("BV1aaaaaaaaa", "summary a")

	now = now.Add(59 * time.Second)
	if _, found := cache.Get("BV1aaaaaaaaa"); !found {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(time.Second)
	if _, found := cache.Get("BV1aaaaaaaaa"); found {
		t.Fatal("expected miss at expiry instant")
	}
	if stats := cache.Stats(); stats.Size != 0 {
		t.Fatalf("size = %d after lazy expiry eviction, want 0", stats.Size)
	}
}

func TestSummaryCachePutRefreshesExpiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	cache := NewSummaryCache(
		WithCacheTTL(time.Minute),
		WithCacheClock(func() time.Time { return now }),
	)

	cache.Put("BV1aaaaaaaaa", "old summary")
	now = now.Add(50 * time.Second)
	cache.Put("BV1aaaaaaaaa", "new summary")

	now = now.Add(30 * time.Second)
	text, found := cache.Get("BV1aaaaaaaaa")
	if !found {
		t.Fatal("expected hit, put must have refreshed expiry")
	}
	if text != "new summary" {
		t.Fatalf("text = %q, want %q", text, "new summary")
	}
}

func TestSummaryCacheCounters(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	cache := NewSummaryCache(
		WithCacheTTL(time.Minute),
		WithCacheClock(func() time.Time { return now }),
	)

	cache.Get("BV1missing")
	cache.Put("BV1aaaaaaaaa", "summary a")
	cache.Get("BV1aaaaaaaaa")
	cache.Get("BV1aaaaaaaaa")

	now = now.Add(2 * time.Minute)
	cache.Get("BV1aaaaaaaaa")

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Fatalf("hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Fatalf("misses = %d, want 2", stats.Misses)
	}
	if stats.MaxEntries != defaultCacheMaxEntries {
		t.Fatalf("max entries = %d, want %d", stats.MaxEntries, defaultCacheMaxEntries)
	}
}

package cache

import (
	"sync"
	"time"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// PageCache is an in-memory page cache with time based expiry.
// At most one entry exists per key.
type PageCache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	ttl        time.Duration
	now        func() time.Time
	generation uint64
}

// Option configures a PageCache.
type Option func(*PageCache)

// WithClock replaces time.Now (for tests).
func WithClock(now func() time.Time) Option {
	return func(c *PageCache) {
		c.now = now
	}
}

// NewPageCache creates an empty cache. A non-positive ttl uses DefaultTTL.
func NewPageCache(ttl time.Duration, opts ...Option) *PageCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &PageCache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached page when present and not older than the TTL.
func (c *PageCache) Get(key CacheKey) (*catalog.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key.String()]
	if !ok {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}

	if entry.IsExpired(c.now(), c.ttl) {
		delete(c.entries, entry.Key)
		CacheEvictions.WithLabelValues("memory").Inc()
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}

	CacheHits.WithLabelValues("memory").Inc()
	return entry.Page, true
}

// Put stores page under key, replacing any previous entry, and sweeps
// stale entries.
func (c *PageCache) Put(key CacheKey, page *catalog.Page) {
	if page == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, page)
}

// PutIf stores page only while the cache is still at generation gen and
// reports whether it did. Results of requests started before a Clear are
// dropped this way.
func (c *PageCache) PutIf(gen uint64, key CacheKey, page *catalog.Page) bool {
	if page == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return false
	}
	c.putLocked(key, page)
	return true
}

func (c *PageCache) putLocked(key CacheKey, page *catalog.Page) {
	k := key.String()
	c.entries[k] = &Entry{
		Key:       k,
		Page:      page,
		FetchedAt: c.now(),
	}
	c.sweepLocked()
}

// Sweep removes all entries older than the TTL and returns how many
// were removed.
func (c *PageCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *PageCache) sweepLocked() int {
	now := c.now()
	removed := 0
	for k, entry := range c.entries {
		if entry.IsExpired(now, c.ttl) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		CacheEvictions.WithLabelValues("memory").Add(float64(removed))
	}
	return removed
}

// Clear drops every entry and starts a new generation.
func (c *PageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.entries); n > 0 {
		CacheEvictions.WithLabelValues("memory").Add(float64(n))
	}
	c.entries = make(map[string]*Entry)
	c.generation++
}

// Generation counts calls to Clear.
func (c *PageCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Len returns the number of stored entries, fresh or not.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the freshness window.
func (c *PageCache) TTL() time.Duration {
	return c.ttl
}

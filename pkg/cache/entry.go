package cache

import (
	"time"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// DefaultTTL is the freshness window of a cached page.
const DefaultTTL = 5 * time.Minute

// Entry is one cached result page. Entries are replaced, never mutated.
type Entry struct {
	// Key is the CacheKey string the entry is stored under
	Key string

	// Page is the cached result page
	Page *catalog.Page

	// FetchedAt is when the page was received from the gateway
	FetchedAt time.Time
}

// Age returns how long ago the page was fetched.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// IsExpired returns true once the entry is older than ttl.
// An entry exactly ttl old is still fresh.
func (e *Entry) IsExpired(now time.Time, ttl time.Duration) bool {
	return e.Age(now) > ttl
}

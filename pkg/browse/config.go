package browse

import (
	"time"

	"github.com/Sternrassler/dino-catalog/pkg/cache"
	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// DefaultDebounce is the quiet period after the last filter edit.
const DefaultDebounce = 300 * time.Millisecond

// Config holds browsing configuration.
type Config struct {
	// PageSize is the number of records per page
	PageSize int

	// TTL is how long a fetched page is served from the cache
	TTL time.Duration

	// Debounce is the quiet period before a filter edit is fetched
	Debounce time.Duration

	// Prefetch enables background fetching of neighbouring pages
	Prefetch bool

	// Clock replaces time.Now in the page cache (for tests)
	Clock func() time.Time
}

// DefaultConfig returns the standard browsing configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: catalog.DefaultPageSize,
		TTL:      cache.DefaultTTL,
		Debounce: DefaultDebounce,
		Prefetch: true,
	}
}

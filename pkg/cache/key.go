package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// CacheKey identifies a cached result.
type CacheKey struct {
	// Endpoint names the operation (e.g., "dinosaurs", "search", "count")
	Endpoint string

	// Filters are the listing filters
	Filters catalog.Filters

	// Page and Limit locate the page; zero means "not paginated"
	Page  int
	Limit int

	// Params carries operation specific arguments (e.g., {"name": "Tyrannosaurus"})
	Params map[string]string
}

// NewKey builds the listing key for a filtered page.
func NewKey(filters catalog.Filters, page, limit int) CacheKey {
	return CacheKey{
		Endpoint: "dinosaurs",
		Filters:  filters,
		Page:     page,
		Limit:    limit,
	}
}

// String generates a deterministic cache key string.
// Format: dino:endpoint:search=x:diet=y:locomotionType=z:era=w:page=1:limit=12:param=v
//
// Example:
//
//	dino:dinosaurs:diet=carnivore:page=1:limit=12
func (k CacheKey) String() string {
	parts := []string{"dino"}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	parts = appendField(parts, "search", k.Filters.Search)
	parts = appendField(parts, "diet", k.Filters.Diet)
	parts = appendField(parts, "locomotionType", k.Filters.LocomotionType)
	parts = appendField(parts, "era", k.Filters.Era)

	if k.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", k.Page))
	}
	if k.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", k.Limit))
	}

	// Params sorted for determinism
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = appendField(parts, key, k.Params[key])
		}
	}

	return strings.Join(parts, ":")
}

// FilterKey is the key of the filter set alone, ignoring the page.
// Two keys with equal FilterKey belong to the same result set.
func (k CacheKey) FilterKey() string {
	k.Page = 0
	return k.String()
}

func appendField(parts []string, name, value string) []string {
	if value == "" {
		return parts
	}
	return append(parts, name+"="+url.QueryEscape(value))
}

package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/dino-catalog/pkg/cache"
	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// Cached is a read-through Redis cache in front of another Gateway.
// Concurrent misses for the same key share one upstream call. Cache
// failures degrade to uncached reads.
type Cached struct {
	next   Gateway
	cache  *cache.Manager
	group  singleflight.Group
	logger zerolog.Logger
}

// NewCached wraps next with the shared cache m.
func NewCached(next Gateway, m *cache.Manager) *Cached {
	return &Cached{
		next:   next,
		cache:  m,
		logger: log.With().Str("component", "gateway-cache").Logger(),
	}
}

// readThrough serves key from Redis or loads, stores and returns it.
func readThrough[T any](ctx context.Context, c *Cached, key cache.CacheKey, load func(context.Context) (T, error)) (T, error) {
	var cached T
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		c.logger.Debug().Str("key", key.String()).Msg("Cache hit")
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
	}

	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		loadCtx := context.WithoutCancel(ctx)

		fresh, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(loadCtx, key, fresh); err != nil {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache response")
		}
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	if shared {
		c.logger.Debug().Str("key", key.String()).Msg("Shared in-flight load")
	}
	return v.(T), nil
}

// ListDinosaurs implements Gateway.
func (c *Cached) ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	q.Filters = q.Filters.Normalize()
	q.Limit = catalog.NormalizeLimit(q.Limit)
	if q.Page < 1 {
		q.Page = 1
	}
	key := cache.NewKey(q.Filters, q.Page, q.Limit)
	return readThrough(ctx, c, key, func(ctx context.Context) (*catalog.Page, error) {
		return c.next.ListDinosaurs(ctx, q)
	})
}

// SearchDinosaurs implements Gateway.
func (c *Cached) SearchDinosaurs(ctx context.Context, term string) ([]catalog.Dinosaur, error) {
	term = strings.TrimSpace(term)
	key := cache.CacheKey{Endpoint: "search", Params: map[string]string{"q": term}}
	return readThrough(ctx, c, key, func(ctx context.Context) ([]catalog.Dinosaur, error) {
		return c.next.SearchDinosaurs(ctx, term)
	})
}

// GetDinosaur implements Gateway. Misses (ErrNotFound) are not cached.
func (c *Cached) GetDinosaur(ctx context.Context, name string) (*catalog.Dinosaur, error) {
	key := cache.CacheKey{Endpoint: "detail", Params: map[string]string{"name": name}}
	return readThrough(ctx, c, key, func(ctx context.Context) (*catalog.Dinosaur, error) {
		return c.next.GetDinosaur(ctx, name)
	})
}

// GetDinosaurs implements Gateway.
func (c *Cached) GetDinosaurs(ctx context.Context, names []string) ([]catalog.Dinosaur, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	key := cache.CacheKey{Endpoint: "details", Params: map[string]string{"names": strings.Join(sorted, ",")}}
	return readThrough(ctx, c, key, func(ctx context.Context) ([]catalog.Dinosaur, error) {
		return c.next.GetDinosaurs(ctx, names)
	})
}

// CountDinosaurs implements Gateway.
func (c *Cached) CountDinosaurs(ctx context.Context) (int, error) {
	return readThrough(ctx, c, cache.CacheKey{Endpoint: "count"}, c.next.CountDinosaurs)
}

// FieldDistribution implements Gateway.
func (c *Cached) FieldDistribution(ctx context.Context, field Field) (map[string]int, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	key := cache.CacheKey{Endpoint: "distribution", Params: map[string]string{"field": string(field)}}
	return readThrough(ctx, c, key, func(ctx context.Context) (map[string]int, error) {
		return c.next.FieldDistribution(ctx, field)
	})
}

// ListNames implements Gateway.
func (c *Cached) ListNames(ctx context.Context) ([]string, error) {
	return readThrough(ctx, c, cache.CacheKey{Endpoint: "names"}, c.next.ListNames)
}

// RandomDinosaurs implements Gateway. Random picks are never cached.
func (c *Cached) RandomDinosaurs(ctx context.Context, n int) ([]catalog.Dinosaur, error) {
	return c.next.RandomDinosaurs(ctx, n)
}

// Ping implements Gateway. Only the store decides readiness; an
// unreachable cache is logged.
func (c *Cached) Ping(ctx context.Context) error {
	if err := c.cache.Ping(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Cache ping failed")
	}
	return c.next.Ping(ctx)
}

// Purge drops every cached catalog entry.
func (c *Cached) Purge(ctx context.Context) (int, error) {
	return c.cache.Purge(ctx)
}

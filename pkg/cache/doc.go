// Package cache provides the caches used on both sides of the catalog API.
//
// PageCache is the client-side Fetch Cache Layer: a process-local map from
// (filters, page, page size) to a result page with a fixed freshness window.
// It is owned by a browsing session and dropped with it.
//
// Manager is the server-side shared response cache backed by Redis. Values
// are stored as JSON and expire through Redis TTLs.
//
// # Basic Usage
//
//	pages := cache.NewPageCache(cache.DefaultTTL)
//
//	key := cache.NewKey(catalog.Filters{Diet: "carnivore"}, 1, 12)
//	if page, ok := pages.Get(key); ok {
//		// fresh hit, no round-trip needed
//	}
//
//	pages.Put(key, page) // stores and sweeps stale entries
//	pages.Clear()        // any non-page filter changed
//
// # Shared Cache
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	var page catalog.Page
//	err := manager.Get(ctx, key, &page)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// query the gateway, then manager.Set(ctx, key, page)
//	}
//
// # Conditional Responses
//
// ETag and NotModified let the HTTP API answer If-None-Match requests with
// 304 Not Modified.
//
// # Metrics
//
//   - dino_cache_hits_total{layer} - Cache hits ("memory", "redis")
//   - dino_cache_misses_total{layer} - Cache misses
//   - dino_cache_evictions_total{layer} - Entries dropped by sweep or clear
//   - dino_cache_errors_total{operation} - Redis operation errors
//   - dino_304_responses_total - Conditional requests answered with 304
package cache

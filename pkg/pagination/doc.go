// Package pagination provides parallel batch fetching of paginated catalog
// listings.
//
// Listings report their total page count in the pagination block of every
// page. This package fetches the first page to learn that count and then
// fetches the remaining pages with a bounded worker pool, so audits and
// exports do not walk the catalog one page at a time.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher(apiClient, config)
//	records, err := fetcher.FetchAll(ctx, catalog.Filters{Diet: "carnivore"})
//
// The batch fetcher:
//   - Fetches first page to determine total pages
//   - Spawns worker pool (default 4 workers)
//   - Distributes remaining pages across workers
//   - Collects results with progress logging
//   - Handles errors gracefully (returns partial data)
package pagination

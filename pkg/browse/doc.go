// Package browse drives a paginated, filtered view of the catalog.
//
// A Session owns the filter state of one browsing view. It is built from
// three parts:
//   - a cache.PageCache holding recently fetched pages for five minutes
//   - a Coordinator that keeps one authoritative request in flight,
//     discards superseded results and prefetches neighbouring pages
//   - a Debouncer that coalesces rapid filter edits into one fetch
//
// Changing any filter resets the page to 1 and clears the cache. Page
// changes are fetched immediately and served synchronously when the page
// was already prefetched.
//
// Example usage:
//
//	s := browse.NewSession(apiClient, browse.DefaultConfig())
//	defer s.Close()
//	s.OnChange(render)
//	s.Load()
//	s.SetDiet("carnivore")
package browse

package browse

import (
	"sync"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// FilterState is the filter and page selection of a browsing view.
type FilterState struct {
	Filters  catalog.Filters
	Page     int
	PageSize int
}

// Query returns the gateway query for the state.
func (s FilterState) Query() catalog.Query {
	return catalog.Query{Filters: s.Filters, Page: s.Page, Limit: s.PageSize}
}

// SameFilters reports whether both states select the same result set,
// ignoring the page.
func (s FilterState) SameFilters(o FilterState) bool {
	return s.Filters.Normalize() == o.Filters.Normalize() && s.PageSize == o.PageSize
}

// ScrollKeeper reads and restores the scroll offset of the view that
// renders a session.
type ScrollKeeper interface {
	ScrollOffset() int
	RestoreScroll(offset int)
}

// Session owns the filter state of one browsing view.
type Session struct {
	coord    *Coordinator
	debounce *Debouncer

	mu     sync.Mutex
	state  FilterState
	scroll ScrollKeeper
}

// NewSession creates a session on page 1 with no filters. Nothing is
// fetched until Load or the first edit.
func NewSession(fetcher Fetcher, cfg Config) *Session {
	return &Session{
		coord:    NewCoordinator(fetcher, cfg),
		debounce: NewDebouncer(cfg.Debounce),
		state: FilterState{
			Page:     1,
			PageSize: catalog.NormalizeLimit(cfg.PageSize),
		},
	}
}

// Coordinator returns the request coordinator of the session.
func (s *Session) Coordinator() *Coordinator {
	return s.coord
}

// State returns the current filter state.
func (s *Session) State() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the current view snapshot.
func (s *Session) View() View {
	return s.coord.View()
}

// OnChange registers fn to receive every view change.
func (s *Session) OnChange(fn func(View)) {
	s.coord.OnChange(fn)
}

// SetScrollKeeper sets the view whose scroll offset SetPage preserves.
func (s *Session) SetScrollKeeper(k ScrollKeeper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scroll = k
}

// Load fetches the current state now, bypassing the debounce.
func (s *Session) Load() {
	s.debounce.Cancel()
	s.coord.Request(s.State().Query())
}

// Refresh refetches the current page, dropping its cached copy first.
// It is the manual retry after an error.
func (s *Session) Refresh() {
	s.debounce.Cancel()
	s.coord.Reset()
	s.coord.Request(s.State().Query())
}

// SetSearch sets the search text.
func (s *Session) SetSearch(v string) {
	s.setFilters(func(f *catalog.Filters) { f.Search = v })
}

// SetDiet sets the diet filter ("" clears it).
func (s *Session) SetDiet(v string) {
	s.setFilters(func(f *catalog.Filters) { f.Diet = v })
}

// SetLocomotion sets the locomotion filter ("" clears it).
func (s *Session) SetLocomotion(v string) {
	s.setFilters(func(f *catalog.Filters) { f.LocomotionType = v })
}

// SetEra sets the era filter ("" clears it).
func (s *Session) SetEra(v string) {
	s.setFilters(func(f *catalog.Filters) { f.Era = v })
}

// setFilters applies a filter edit: back to page 1, cache cleared, fetch
// after the quiet period.
func (s *Session) setFilters(edit func(*catalog.Filters)) {
	s.mu.Lock()
	next := s.state.Filters
	edit(&next)
	if next == s.state.Filters {
		s.mu.Unlock()
		return
	}
	s.state.Filters = next
	s.state.Page = 1
	s.mu.Unlock()

	s.coord.Reset()
	if s.debounce.Pending() {
		debouncedEdits.Inc()
	}
	s.coord.setPhase(PhaseDebouncing)
	s.debounce.Trigger(s.fire)
}

// fire fetches whatever the state is when the quiet period ends.
func (s *Session) fire() {
	s.coord.Request(s.State().Query())
}

// SetPage moves to page n, clamped to the known page range, and reports
// whether the page changed. The scroll offset is kept across the update.
func (s *Session) SetPage(n int) bool {
	view := s.coord.View()

	s.mu.Lock()
	// the page range is unknown until the current filters have loaded
	totalPages := 0
	if view.Filters == s.state.Filters.Normalize() {
		totalPages = view.TotalPages
	}
	n = catalog.ClampPage(n, totalPages)
	if n == s.state.Page {
		s.mu.Unlock()
		return false
	}
	scroll := s.scroll
	offset := 0
	if scroll != nil {
		offset = scroll.ScrollOffset()
	}
	s.state.Page = n
	q := s.state.Query()
	s.mu.Unlock()

	// the fetch below covers any pending filter edit
	s.debounce.Cancel()
	s.coord.Request(q)

	if scroll != nil {
		scroll.RestoreScroll(offset)
	}
	return true
}

// NextPage moves one page forward.
func (s *Session) NextPage() bool {
	return s.SetPage(s.State().Page + 1)
}

// PrevPage moves one page back.
func (s *Session) PrevPage() bool {
	return s.SetPage(s.State().Page - 1)
}

// Flush fires a pending debounced fetch immediately.
func (s *Session) Flush() bool {
	return s.debounce.Flush()
}

// Wait blocks until background fetches have finished.
func (s *Session) Wait() {
	s.coord.Wait()
}

// Close cancels pending and in-flight work and drops the cache.
func (s *Session) Close() {
	s.debounce.Cancel()
	s.coord.Close()
	s.coord.Cache().Clear()
}

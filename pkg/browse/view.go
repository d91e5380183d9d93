package browse

import "github.com/Sternrassler/dino-catalog/pkg/catalog"

// Phase is the lifecycle state of the current filter state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseFetching
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebouncing:
		return "debouncing"
	case PhaseFetching:
		return "fetching"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// View is a snapshot of what a browsing view shows.
type View struct {
	// Filters, Page and Limit describe the request the shown items and
	// totals belong to
	Filters catalog.Filters
	Page    int
	Limit   int

	Items      []catalog.Dinosaur
	TotalCount int
	TotalPages int

	// Loading is set while the first page of a result set loads and
	// nothing is shown yet.
	Loading bool

	// Paginating is set while a new page loads over shown items.
	Paginating bool

	// Err is the user-facing message of the last failed fetch.
	Err string

	Phase Phase
}

// HasNext reports whether a page follows the shown one.
func (v View) HasNext() bool {
	return v.Page < v.TotalPages
}

// HasPrev reports whether a page precedes the shown one.
func (v View) HasPrev() bool {
	return v.Page > 1
}

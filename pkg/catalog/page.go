package catalog

const (
	// DefaultPageSize is the listing page size used when none is requested.
	DefaultPageSize = 12

	// MaxPageSize bounds the limit accepted from callers.
	MaxPageSize = 100
)

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is one page of records plus its pagination metadata.
type Page struct {
	Data       []Dinosaur `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination derives the pagination block for a page of a result set
// holding total records.
func NewPagination(page, limit, total int) Pagination {
	totalPages := TotalPages(total, limit)
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// TotalPages is ceil(total/limit). It is 0 for an empty result set.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ClampPage keeps page within [1, max(1, totalPages)].
func ClampPage(page, totalPages int) int {
	upper := totalPages
	if upper < 1 {
		upper = 1
	}
	switch {
	case page < 1:
		return 1
	case page > upper:
		return upper
	default:
		return page
	}
}

// NormalizeLimit falls back to DefaultPageSize for non-positive limits and
// caps the rest at MaxPageSize.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}

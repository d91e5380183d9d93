// Package gateway reads the dinosaur catalog from its backing store.
//
// Three implementations share the Gateway contract:
//   - PostgREST talks to the hosted Supabase REST endpoint
//   - SQLStore serves the same tables from a local SQLite file
//   - Cached wraps either one with a shared Redis read-through cache
//
// Filtering follows the catalog rules: diet is an exact match, locomotion
// a case-insensitive match, search a case-insensitive substring over name
// and description, era a substring of the temporal range. Listings are
// ordered by name.
package gateway

import (
	"context"
	"errors"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

var (
	// ErrNotFound is returned when no record has the requested name.
	ErrNotFound = errors.New("dinosaur not found")

	// ErrUnknownField is returned for distributions over unsupported columns.
	ErrUnknownField = errors.New("unknown field")
)

// Field names a column a distribution can be computed over.
type Field string

const (
	FieldDiet       Field = "diet"
	FieldLocomotion Field = "locomotion_type"
)

// Valid reports whether f is a supported distribution field.
func (f Field) Valid() bool {
	return f == FieldDiet || f == FieldLocomotion
}

// DefaultRandomCount is used by RandomDinosaurs for non-positive counts.
const DefaultRandomCount = 5

// Gateway is the read API over the catalog store.
type Gateway interface {
	// ListDinosaurs returns one filtered page ordered by name.
	ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error)

	// SearchDinosaurs returns every record whose name or description
	// contains term.
	SearchDinosaurs(ctx context.Context, term string) ([]catalog.Dinosaur, error)

	// GetDinosaur returns the record with exactly this name or ErrNotFound.
	GetDinosaur(ctx context.Context, name string) (*catalog.Dinosaur, error)

	// GetDinosaurs returns the records for the given names; unknown names
	// are skipped.
	GetDinosaurs(ctx context.Context, names []string) ([]catalog.Dinosaur, error)

	// CountDinosaurs returns the number of records.
	CountDinosaurs(ctx context.Context) (int, error)

	// FieldDistribution counts records per value of field. Empty values
	// are counted under "unknown".
	FieldDistribution(ctx context.Context, field Field) (map[string]int, error)

	// ListNames returns every record name, sorted.
	ListNames(ctx context.Context) ([]string, error)

	// RandomDinosaurs returns up to n records picked at random.
	RandomDinosaurs(ctx context.Context, n int) ([]catalog.Dinosaur, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

// UnknownValue is the distribution bucket of empty column values.
const UnknownValue = "unknown"

func distributionKey(v string) string {
	if v == "" {
		return UnknownValue
	}
	return v
}
var (
	_ Gateway = (*PostgREST)(nil)
	_ Gateway = (*SQLStore)(nil)
	_ Gateway = (*Cached)(nil)
)

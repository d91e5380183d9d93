package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
	"github.com/Sternrassler/dino-catalog/pkg/characters"
)

// envelope is the response wrapper of every catalog API route.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data"`
	Error   string `json:"error,omitempty"`
}

// getData fetches path and unwraps the envelope. A body with
// success=false or no data is ErrUnsuccessful.
func getData[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	var env envelope[T]
	if _, err := c.GetJSON(ctx, path, query, &env); err != nil {
		return nil, err
	}
	if !env.Success || env.Data == nil {
		if env.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, env.Error)
		}
		return nil, ErrUnsuccessful
	}
	return env.Data, nil
}

// FilterValues encodes a listing query as the API's query parameters.
// The era travels as "period".
func FilterValues(q catalog.Query) url.Values {
	v := url.Values{}
	f := q.Filters
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Diet != "" {
		v.Set("diet", f.Diet)
	}
	if f.LocomotionType != "" {
		v.Set("locomotionType", f.LocomotionType)
	}
	if f.Era != "" {
		v.Set("period", f.Era)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// ListDinosaurs fetches one filtered page of the catalog.
func (c *Client) ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	page, err := getData[catalog.Page](ctx, c, "/api/dinosaurs", FilterValues(q))
	if err != nil {
		return nil, fmt.Errorf("list dinosaurs: %w", err)
	}
	return page, nil
}

// Search runs a free text search over names and descriptions.
func (c *Client) Search(ctx context.Context, q string) ([]catalog.Dinosaur, error) {
	data, err := getData[[]catalog.Dinosaur](ctx, c, "/api/dinosaurs/search", url.Values{"q": {q}})
	if err != nil {
		return nil, fmt.Errorf("search dinosaurs: %w", err)
	}
	return *data, nil
}

// GetDinosaur fetches one record by name. Unknown names return an
// error matching ErrNotFound.
func (c *Client) GetDinosaur(ctx context.Context, name string) (*catalog.Dinosaur, error) {
	d, err := getData[catalog.Dinosaur](ctx, c, "/api/dinosaurs/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("get dinosaur %q: %w", name, err)
	}
	return d, nil
}

// Count returns the number of records in the catalog.
func (c *Client) Count(ctx context.Context) (int, error) {
	data, err := getData[struct {
		Total int `json:"total"`
	}](ctx, c, "/api/dinosaurs/count", nil)
	if err != nil {
		return 0, fmt.Errorf("count dinosaurs: %w", err)
	}
	return data.Total, nil
}

// Stats returns the catalog distributions.
func (c *Client) Stats(ctx context.Context) (*catalog.Statistics, error) {
	stats, err := getData[catalog.Statistics](ctx, c, "/api/dinosaurs/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("dinosaur stats: %w", err)
	}
	return stats, nil
}

// Names returns every record name, sorted.
func (c *Client) Names(ctx context.Context) ([]string, error) {
	names, err := getData[[]string](ctx, c, "/api/dinosaurs/names", nil)
	if err != nil {
		return nil, fmt.Errorf("dinosaur names: %w", err)
	}
	return *names, nil
}

// Random returns up to n random records; n <= 0 uses the server default.
func (c *Client) Random(ctx context.Context, n int) ([]catalog.Dinosaur, error) {
	var query url.Values
	if n > 0 {
		query = url.Values{"count": {strconv.Itoa(n)}}
	}
	data, err := getData[[]catalog.Dinosaur](ctx, c, "/api/dinosaurs/random", query)
	if err != nil {
		return nil, fmt.Errorf("random dinosaurs: %w", err)
	}
	return *data, nil
}

// SearchCharacters runs the character similarity search.
func (c *Client) SearchCharacters(ctx context.Context, q string) ([]characters.Match, error) {
	data, err := getData[[]characters.Match](ctx, c, "/api/characters/search", url.Values{"q": {q}})
	if err != nil {
		return nil, fmt.Errorf("search characters: %w", err)
	}
	return *data, nil
}

package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
	"github.com/Sternrassler/dino-catalog/pkg/client"
)

const (
	detailsTable = "dinosaur_details"
	imagesTable  = "image_data"
)

// PostgRESTConfig configures the hosted store gateway.
type PostgRESTConfig struct {
	// URL is the project URL (e.g., https://xyz.supabase.co)
	URL string

	// AnonKey is sent as apikey and bearer token
	AnonKey string

	UserAgent string

	// RateLimit paces upstream requests per second (0 disables)
	RateLimit float64

	Retry client.RetryConfig
}

// PostgREST reads the catalog through the Supabase REST interface.
type PostgREST struct {
	client *client.Client
	logger zerolog.Logger
}

// NewPostgREST creates a gateway for the project at cfg.URL.
func NewPostgREST(cfg PostgRESTConfig) (*PostgREST, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}

	ccfg := client.DefaultConfig(strings.TrimRight(cfg.URL, "/")+"/rest/v1", cfg.UserAgent)
	if ccfg.UserAgent == "" {
		ccfg.UserAgent = "dino-catalog"
	}
	ccfg.Headers = map[string]string{
		"apikey":        cfg.AnonKey,
		"Authorization": "Bearer " + cfg.AnonKey,
	}
	ccfg.RateLimit = cfg.RateLimit
	if cfg.Retry.MaxAttempts > 0 {
		ccfg.Retry = cfg.Retry
	}
	ccfg.Component = "postgrest"

	c, err := client.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("postgrest client: %w", err)
	}

	return &PostgREST{
		client: c,
		logger: log.With().Str("component", "postgrest").Logger(),
	}, nil
}

// fetchRows runs a select on dinosaur_details. With countExact the
// total row count of the filter is returned as well.
func (p *PostgREST) fetchRows(ctx context.Context, params url.Values, countExact bool) ([]detailRow, int, error) {
	req, err := p.client.NewRequest(ctx, detailsTable, params)
	if err != nil {
		return nil, 0, err
	}
	if countExact {
		req.Header.Set("Prefer", "count=exact")
	}

	var rows []detailRow
	header, err := p.client.DoJSON(req, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("select %s: %w", detailsTable, err)
	}

	total := len(rows)
	if countExact {
		total, err = parseContentRange(header.Get("Content-Range"))
		if err != nil {
			return nil, 0, err
		}
	}
	return rows, total, nil
}

func (p *PostgREST) toDinosaurs(ctx context.Context, rows []detailRow) []catalog.Dinosaur {
	items := make([]catalog.Dinosaur, len(rows))
	for i, r := range rows {
		items[i] = r.toDinosaur()
	}
	enrichImages(ctx, p.logger, items, p.lookupImage)
	return items
}

// lookupImage finds the image_data row whose title is "File:<title>.*".
func (p *PostgREST) lookupImage(ctx context.Context, title string) (*catalog.Image, error) {
	params := url.Values{
		"select": {"*"},
		"title":  {"ilike." + imagePattern(title) + "*"},
		"limit":  {"1"},
	}

	var rows []imageRow
	if _, err := p.client.GetJSON(ctx, imagesTable, params, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", imagesTable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toImage(), nil
}

// ListDinosaurs implements Gateway.
func (p *PostgREST) ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	q.Limit = catalog.NormalizeLimit(q.Limit)
	if q.Page < 1 {
		q.Page = 1
	}

	rows, total, err := p.fetchRows(ctx, listParams(q), true)
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Int("page", q.Page).
		Int("rows", len(rows)).
		Int("total", total).
		Msg("Fetched page")

	return &catalog.Page{
		Data:       p.toDinosaurs(ctx, rows),
		Pagination: catalog.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// SearchDinosaurs implements Gateway.
func (p *PostgREST) SearchDinosaurs(ctx context.Context, term string) ([]catalog.Dinosaur, error) {
	params := url.Values{
		"select": {"*"},
		"or":     {searchFilter(strings.TrimSpace(term))},
		"order":  {"name.asc"},
	}
	rows, _, err := p.fetchRows(ctx, params, false)
	if err != nil {
		return nil, err
	}
	return p.toDinosaurs(ctx, rows), nil
}

// GetDinosaur implements Gateway.
func (p *PostgREST) GetDinosaur(ctx context.Context, name string) (*catalog.Dinosaur, error) {
	params := url.Values{
		"select": {"*"},
		"name":   {"eq." + name},
		"limit":  {"1"},
	}
	rows, _, err := p.fetchRows(ctx, params, false)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	items := p.toDinosaurs(ctx, rows)
	return &items[0], nil
}

// GetDinosaurs implements Gateway.
func (p *PostgREST) GetDinosaurs(ctx context.Context, names []string) ([]catalog.Dinosaur, error) {
	if len(names) == 0 {
		return []catalog.Dinosaur{}, nil
	}
	params := url.Values{
		"select": {"*"},
		"name":   {namesFilter(names)},
		"order":  {"name.asc"},
	}
	rows, _, err := p.fetchRows(ctx, params, false)
	if err != nil {
		return nil, err
	}
	return p.toDinosaurs(ctx, rows), nil
}

// CountDinosaurs implements Gateway.
func (p *PostgREST) CountDinosaurs(ctx context.Context) (int, error) {
	params := url.Values{"select": {"id"}, "limit": {"1"}}
	_, total, err := p.fetchRows(ctx, params, true)
	return total, err
}

// FieldDistribution implements Gateway.
func (p *PostgREST) FieldDistribution(ctx context.Context, field Field) (map[string]int, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	req, err := p.client.NewRequest(ctx, detailsTable, url.Values{"select": {string(field)}})
	if err != nil {
		return nil, err
	}

	var rows []map[string]*string
	if _, err := p.client.DoJSON(req, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", field, err)
	}

	dist := make(map[string]int)
	for _, row := range rows {
		v := ""
		if s := row[string(field)]; s != nil {
			v = *s
		}
		dist[distributionKey(v)]++
	}
	return dist, nil
}

// ListNames implements Gateway.
func (p *PostgREST) ListNames(ctx context.Context) ([]string, error) {
	params := url.Values{"select": {"name"}, "order": {"name.asc"}}
	rows, _, err := p.fetchRows(ctx, params, false)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	sort.Strings(names)
	return names, nil
}

// RandomDinosaurs implements Gateway. PostgREST cannot order randomly, so
// a random window of n consecutive rows is read and shuffled.
func (p *PostgREST) RandomDinosaurs(ctx context.Context, n int) ([]catalog.Dinosaur, error) {
	if n <= 0 {
		n = DefaultRandomCount
	}

	total, err := p.CountDinosaurs(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []catalog.Dinosaur{}, nil
	}

	offset := 0
	if total > n {
		offset = rand.Intn(total - n + 1)
	}

	params := url.Values{
		"select": {"*"},
		"order":  {"id.asc"},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(n)},
	}
	rows, _, err := p.fetchRows(ctx, params, false)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return p.toDinosaurs(ctx, rows), nil
}

// Ping implements Gateway.
func (p *PostgREST) Ping(ctx context.Context) error {
	params := url.Values{"select": {"id"}, "limit": {"1"}}
	_, _, err := p.fetchRows(ctx, params, false)
	return err
}

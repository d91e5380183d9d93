package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/dino-catalog/pkg/cache"
	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

var (
	// ErrCancelled is returned for requests superseded by a newer
	// authoritative request or a filter change. It is never shown.
	ErrCancelled = errors.New("request superseded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("coordinator closed")
)

// ErrorMessage is the view error for any failed fetch.
const ErrorMessage = "Failed to load dinosaurs. Please try again."

// Fetcher loads one filtered page. The API client and the gateways
// implement it.
type Fetcher interface {
	ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error)
}

// Coordinator issues page requests for one browsing view. Only the most
// recent authoritative request may update the view; prefetches only warm
// the cache.
type Coordinator struct {
	fetcher  Fetcher
	cache    *cache.PageCache
	prefetch bool
	limit    int
	group    singleflight.Group
	logger   zerolog.Logger

	mu        sync.Mutex
	view      View
	token     uint64
	cancelTok context.CancelFunc
	genCtx    context.Context
	genCancel context.CancelFunc
	onChange  func(View)
	closed    bool

	// background prefetches and Request fetches; idle is signalled on mu
	// when pending drops to zero
	pending int
	idle    *sync.Cond
}

// NewCoordinator creates a coordinator with its own page cache.
func NewCoordinator(fetcher Fetcher, cfg Config) *Coordinator {
	var opts []cache.Option
	if cfg.Clock != nil {
		opts = append(opts, cache.WithClock(cfg.Clock))
	}

	genCtx, genCancel := context.WithCancel(context.Background())
	c := &Coordinator{
		fetcher:   fetcher,
		cache:     cache.NewPageCache(cfg.TTL, opts...),
		prefetch:  cfg.Prefetch,
		limit:     catalog.NormalizeLimit(cfg.PageSize),
		logger:    log.With().Str("component", "browse").Logger(),
		genCtx:    genCtx,
		genCancel: genCancel,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Cache returns the page cache owned by the coordinator.
func (c *Coordinator) Cache() *cache.PageCache {
	return c.cache
}

// View returns the current view snapshot.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// OnChange registers fn to receive every view change. fn is called
// without locks held and must not block for long.
func (c *Coordinator) OnChange(fn func(View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Coordinator) normalize(q catalog.Query) catalog.Query {
	q.Filters = q.Filters.Normalize()
	if q.Limit <= 0 {
		q.Limit = c.limit
	}
	q.Limit = catalog.NormalizeLimit(q.Limit)
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// FetchPage returns the page for q, from the cache when fresh.
//
// An authoritative fetch supersedes the previous authoritative request and
// updates the view when it completes, unless it was superseded in turn, in
// which case ErrCancelled is returned and the view is left alone. A
// prefetch (authoritative false) only stores its result in the cache.
func (c *Coordinator) FetchPage(ctx context.Context, q catalog.Query, authoritative bool) (*catalog.Page, error) {
	q = c.normalize(q)

	if !authoritative {
		return c.fetchPrefetch(ctx, q)
	}

	if page, ok := c.applyCached(q); ok {
		return page, nil
	}

	req, err := c.begin(ctx, q)
	if err != nil {
		return nil, err
	}
	return c.run(req)
}

// Request starts an authoritative fetch for q without waiting for it. A
// cached page is applied before Request returns.
func (c *Coordinator) Request(q catalog.Query) {
	q = c.normalize(q)

	if _, ok := c.applyCached(q); ok {
		return
	}

	req, err := c.begin(context.Background(), q)
	if err != nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		req.cancel()
		return
	}
	c.pending++
	c.mu.Unlock()

	go func() {
		defer c.done()
		c.run(req)
	}()
}

// request is one authoritative fetch in flight.
type request struct {
	token  uint64
	query  catalog.Query
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	genCtx context.Context
}

// begin makes q the current authoritative request and marks the view as
// loading.
func (c *Coordinator) begin(ctx context.Context, q catalog.Query) (*request, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	c.supersedeLocked()
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancelTok = cancel

	req := &request{
		token:  c.token,
		query:  q,
		ctx:    reqCtx,
		cancel: cancel,
		gen:    c.cache.Generation(),
		genCtx: c.genCtx,
	}

	if len(c.view.Items) > 0 {
		c.view.Paginating = true
	} else {
		c.view.Loading = true
	}
	c.view.Err = ""
	c.view.Phase = PhaseFetching
	view, fn := c.view, c.onChange
	c.mu.Unlock()

	c.logger.Debug().
		Uint64("token", req.token).
		Int("page", q.Page).
		Str("filters", cache.NewKey(q.Filters, 0, 0).String()).
		Msg("Authoritative fetch started")

	notify(fn, view)
	return req, nil
}

// run loads the page of req and applies it if req is still current.
func (c *Coordinator) run(req *request) (*catalog.Page, error) {
	defer req.cancel()

	page, err := c.load(req.ctx, req.gen, req.genCtx, req.query)
	return c.finish(req, page, err)
}

// load fetches q through the shared in-flight group. The fetch itself runs
// on the generation context so a superseded waiter leaves it running (its
// page still warms the cache) while a filter change aborts it.
func (c *Coordinator) load(waitCtx context.Context, gen uint64, genCtx context.Context, q catalog.Query) (*catalog.Page, error) {
	key := cache.NewKey(q.Filters, q.Page, q.Limit)
	flight := fmt.Sprintf("%d|%s", gen, key.String())

	ch := c.group.DoChan(flight, func() (any, error) {
		page, err := c.fetcher.ListDinosaurs(genCtx, q)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, fmt.Errorf("empty response for page %d", q.Page)
		}
		if !c.cache.PutIf(gen, key, page) {
			c.logger.Debug().
				Str("key", key.String()).
				Msg("Dropped page fetched before a filter change")
		}
		return page, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*catalog.Page), nil
	case <-waitCtx.Done():
		return nil, ErrCancelled
	}
}

// finish applies the outcome of req to the view. Every write is guarded by
// the token check.
func (c *Coordinator) finish(req *request, page *catalog.Page, err error) (*catalog.Page, error) {
	c.mu.Lock()
	if req.token != c.token {
		c.mu.Unlock()
		fetchesTotal.WithLabelValues(kindAuthoritative, "discarded").Inc()
		c.logger.Debug().
			Uint64("token", req.token).
			Int("page", req.query.Page).
			Msg("Discarded superseded result")
		return nil, ErrCancelled
	}

	c.cancelTok = nil

	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		// the caller gave up; nothing newer owns the loading flags
		c.token++
		c.view.Loading = false
		c.view.Paginating = false
		c.view.Phase = PhaseIdle
		view, fn := c.view, c.onChange
		c.mu.Unlock()

		fetchesTotal.WithLabelValues(kindAuthoritative, "discarded").Inc()
		notify(fn, view)
		return nil, ErrCancelled
	}

	if err != nil {
		// the failed request owns the view; its page range is unknown
		c.view.Filters = req.query.Filters
		c.view.Page = req.query.Page
		c.view.Limit = req.query.Limit
		c.view.Items = nil
		c.view.TotalCount = 0
		c.view.TotalPages = 0
		c.view.Loading = false
		c.view.Paginating = false
		c.view.Err = ErrorMessage
		c.view.Phase = PhaseError
		view, fn := c.view, c.onChange
		c.mu.Unlock()

		fetchesTotal.WithLabelValues(kindAuthoritative, "error").Inc()
		c.logger.Warn().
			Err(err).
			Int("page", req.query.Page).
			Msg("Page fetch failed")
		notify(fn, view)
		return nil, err
	}

	c.applyLocked(req.query, page)
	view, fn := c.view, c.onChange
	c.mu.Unlock()

	fetchesTotal.WithLabelValues(kindAuthoritative, "network").Inc()
	notify(fn, view)
	c.schedulePrefetch(req.query, page.Pagination.TotalPages)
	return page, nil
}

// applyCached shows the cached page for q, superseding any authoritative
// request in flight.
func (c *Coordinator) applyCached(q catalog.Query) (*catalog.Page, bool) {
	page, ok := c.cache.Get(cache.NewKey(q.Filters, q.Page, q.Limit))
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false
	}
	c.supersedeLocked()
	c.applyLocked(q, page)
	view, fn := c.view, c.onChange
	c.mu.Unlock()

	fetchesTotal.WithLabelValues(kindAuthoritative, "cache").Inc()
	notify(fn, view)
	c.schedulePrefetch(q, page.Pagination.TotalPages)
	return page, true
}

func (c *Coordinator) applyLocked(q catalog.Query, page *catalog.Page) {
	c.view.Filters = q.Filters
	c.view.Page = q.Page
	c.view.Limit = q.Limit
	c.view.Items = page.Data
	c.view.TotalCount = page.Pagination.Total
	c.view.TotalPages = page.Pagination.TotalPages
	c.view.Loading = false
	c.view.Paginating = false
	c.view.Err = ""
	c.view.Phase = PhaseIdle
}

// supersedeLocked invalidates the current authoritative request.
func (c *Coordinator) supersedeLocked() {
	c.token++
	if c.cancelTok != nil {
		c.cancelTok()
		c.cancelTok = nil
	}
}

// schedulePrefetch warms the cache with the pages around q.Page.
func (c *Coordinator) schedulePrefetch(q catalog.Query, totalPages int) {
	if !c.prefetch {
		return
	}

	for _, p := range []int{q.Page - 1, q.Page + 1} {
		if p < 1 || p > totalPages {
			continue
		}
		next := q
		next.Page = p

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		ctx := c.genCtx
		c.pending++
		c.mu.Unlock()

		go func() {
			defer c.done()
			if _, err := c.FetchPage(ctx, next, false); err != nil {
				c.logger.Debug().
					Err(err).
					Int("page", next.Page).
					Msg("Prefetch failed")
			}
		}()
	}
}

// fetchPrefetch loads q into the cache without touching the view.
func (c *Coordinator) fetchPrefetch(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	if page, ok := c.cache.Get(cache.NewKey(q.Filters, q.Page, q.Limit)); ok {
		fetchesTotal.WithLabelValues(kindPrefetch, "cache").Inc()
		return page, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	gen, genCtx := c.cache.Generation(), c.genCtx
	c.mu.Unlock()

	page, err := c.load(ctx, gen, genCtx, q)
	if err != nil {
		fetchesTotal.WithLabelValues(kindPrefetch, "error").Inc()
		return nil, err
	}
	fetchesTotal.WithLabelValues(kindPrefetch, "network").Inc()
	return page, nil
}

// Reset clears the cache and aborts every request in flight. It is called
// when the filters change.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Clear()
	c.genCancel()
	c.genCtx, c.genCancel = context.WithCancel(context.Background())
	c.supersedeLocked()
	c.view.Loading = false
	c.view.Paginating = false
}

// setPhase records a lifecycle change driven by the session.
func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	c.view.Phase = p
	view, fn := c.view, c.onChange
	c.mu.Unlock()

	notify(fn, view)
}

// done marks one background fetch as finished.
func (c *Coordinator) done() {
	c.mu.Lock()
	c.pending--
	if c.pending == 0 {
		c.idle.Broadcast()
	}
	c.mu.Unlock()
}

// Wait blocks until background fetches have finished. Fetches started
// while Wait blocks are waited for too.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	for c.pending > 0 {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

// Close aborts every request and waits for background work to stop.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.supersedeLocked()
	c.genCancel()
	c.mu.Unlock()

	c.Wait()
}

func notify(fn func(View), v View) {
	if fn != nil {
		fn(v)
	}
}

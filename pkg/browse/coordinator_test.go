package browse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/dino-catalog/internal/testutil"
	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

func TestCoordinator_SecondFetchServedFromCache(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	c := NewCoordinator(mem, noPrefetch())
	defer c.Close()

	ctx := context.Background()
	q := query(1, catalog.Filters{Diet: catalog.DietHerbivore})

	first, err := c.FetchPage(ctx, q, true)
	if err != nil {
		t.Fatalf("first FetchPage() error = %v", err)
	}
	second, err := c.FetchPage(ctx, q, true)
	if err != nil {
		t.Fatalf("second FetchPage() error = %v", err)
	}

	if mem.CallCount() != 1 {
		t.Errorf("network calls = %d, want 1", mem.CallCount())
	}
	if first != second {
		t.Error("second fetch should return the cached page")
	}
}

func TestCoordinator_StaleEntryIsMiss(t *testing.T) {
	clock := newTestClock()
	cfg := noPrefetch()
	cfg.Clock = clock.Now

	mem := testutil.NewMemoryCatalog()
	c := NewCoordinator(mem, cfg)
	defer c.Close()

	ctx := context.Background()
	q := query(1, catalog.Filters{})

	if _, err := c.FetchPage(ctx, q, true); err != nil {
		t.Fatal(err)
	}

	clock.Advance(5 * time.Minute)
	if _, err := c.FetchPage(ctx, q, true); err != nil {
		t.Fatal(err)
	}
	if mem.CallCount() != 1 {
		t.Errorf("entry exactly 5 minutes old should be served, calls = %d", mem.CallCount())
	}

	clock.Advance(time.Second)
	if _, err := c.FetchPage(ctx, q, true); err != nil {
		t.Fatal(err)
	}
	if mem.CallCount() != 2 {
		t.Errorf("entry older than 5 minutes should be refetched, calls = %d", mem.CallCount())
	}
}

func TestCoordinator_SupersededResultNeverApplied(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	mem.Gate = make(chan struct{})
	mem.Started = make(chan catalog.Query, 4)

	c := NewCoordinator(mem, noPrefetch())
	defer c.Close()

	rec := &viewRecorder{}
	c.OnChange(rec.record)

	ctx := context.Background()
	qa := query(1, catalog.Filters{})
	qb := query(2, catalog.Filters{})

	errA := make(chan error, 1)
	go func() {
		_, err := c.FetchPage(ctx, qa, true)
		errA <- err
	}()
	waitStarted(t, mem.Started)

	type result struct {
		page *catalog.Page
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		page, err := c.FetchPage(ctx, qb, true)
		resB <- result{page, err}
	}()
	waitStarted(t, mem.Started)

	select {
	case err := <-errA:
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("superseded fetch error = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded fetch did not return")
	}

	// both network calls complete now
	close(mem.Gate)

	b := <-resB
	if b.err != nil {
		t.Fatalf("current fetch error = %v", b.err)
	}

	// A's network call finishes in the background and still warms the cache
	waitFor(t, "both pages cached", func() bool { return c.Cache().Len() == 2 })

	view := c.View()
	if view.Page != 2 {
		t.Errorf("view page = %d, want 2", view.Page)
	}
	page2First := testutil.Dinosaurs()[catalog.DefaultPageSize].Name
	if len(view.Items) == 0 || view.Items[0].Name != page2First {
		t.Errorf("view shows %v, want page 2 starting with %s", names(view.Items), page2First)
	}

	page1First := testutil.Dinosaurs()[0].Name
	for _, v := range rec.all() {
		if len(v.Items) > 0 && v.Items[0].Name == page1First {
			t.Errorf("superseded page 1 was applied to the view: %+v", v)
		}
	}
}

func TestCoordinator_PrefetchesNeighbours(t *testing.T) {
	tests := []struct {
		name string
		page int
		want []int
	}{
		{name: "first page", page: 1, want: []int{2}},
		{name: "middle page", page: 2, want: []int{1, 3}},
		{name: "last page", page: 4, want: []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := testutil.NewMemoryCatalog()
			c := NewCoordinator(mem, DefaultConfig())
			defer c.Close()

			if _, err := c.FetchPage(context.Background(), query(tt.page, catalog.Filters{}), true); err != nil {
				t.Fatal(err)
			}
			c.Wait()

			for _, p := range tt.want {
				if n := mem.CountCalls(query(p, catalog.Filters{})); n != 1 {
					t.Errorf("page %d fetched %d times, want 1", p, n)
				}
			}
			if got := mem.CallCount(); got != len(tt.want)+1 {
				t.Errorf("calls = %d, want %d", got, len(tt.want)+1)
			}
			if c.View().Page != tt.page {
				t.Errorf("prefetch changed the view to page %d", c.View().Page)
			}
		})
	}
}

func TestCoordinator_PrefetchedPageNeedsNoNetwork(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	c := NewCoordinator(mem, DefaultConfig())
	defer c.Close()

	rec := &viewRecorder{}
	c.OnChange(rec.record)

	if _, err := c.FetchPage(context.Background(), query(2, catalog.Filters{}), true); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	page3 := query(3, catalog.Filters{})
	before := mem.CountCalls(page3)

	// Request applies cached pages before returning
	c.Request(page3)

	view := c.View()
	if view.Page != 3 || view.Loading || view.Paginating {
		t.Errorf("view = page %d loading %v paginating %v, want page 3 without loading",
			view.Page, view.Loading, view.Paginating)
	}
	want := testutil.Dinosaurs()[2*catalog.DefaultPageSize].Name
	if view.Items[0].Name != want {
		t.Errorf("first item = %s, want %s", view.Items[0].Name, want)
	}

	c.Wait()
	if got := mem.CountCalls(page3); got != before {
		t.Errorf("page 3 fetched again (%d calls, had %d)", got, before)
	}
	for _, v := range rec.all() {
		if v.Paginating && v.Page == 3 {
			t.Error("cached navigation should never show a loading state")
		}
	}
}

func TestCoordinator_LoadingStates(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	mem.Gate = make(chan struct{}, 1)
	mem.Started = make(chan catalog.Query, 4)

	c := NewCoordinator(mem, noPrefetch())
	defer c.Close()

	c.Request(query(1, catalog.Filters{}))
	waitStarted(t, mem.Started)

	view := c.View()
	if !view.Loading || view.Paginating {
		t.Errorf("initial load: Loading=%v Paginating=%v, want true/false", view.Loading, view.Paginating)
	}
	if view.Phase != PhaseFetching {
		t.Errorf("Phase = %v, want fetching", view.Phase)
	}

	mem.Gate <- struct{}{}
	c.Wait()

	c.Request(query(2, catalog.Filters{}))
	waitStarted(t, mem.Started)

	view = c.View()
	if view.Loading || !view.Paginating {
		t.Errorf("page change: Loading=%v Paginating=%v, want false/true", view.Loading, view.Paginating)
	}
	if len(view.Items) == 0 {
		t.Error("items of the previous page should stay visible while paginating")
	}

	mem.Gate <- struct{}{}
	c.Wait()

	view = c.View()
	if view.Loading || view.Paginating || view.Phase != PhaseIdle {
		t.Errorf("after load: %+v", view)
	}
}

func TestCoordinator_ErrorClearsItems(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	c := NewCoordinator(mem, noPrefetch())
	defer c.Close()

	ctx := context.Background()
	if _, err := c.FetchPage(ctx, query(1, catalog.Filters{}), true); err != nil {
		t.Fatal(err)
	}

	mem.FailNext(1)
	_, err := c.FetchPage(ctx, query(2, catalog.Filters{}), true)
	if !errors.Is(err, testutil.ErrInjected) {
		t.Fatalf("error = %v, want ErrInjected", err)
	}

	view := c.View()
	if view.Items != nil {
		t.Errorf("Items = %v, want cleared", names(view.Items))
	}
	if view.Err != ErrorMessage || view.Phase != PhaseError {
		t.Errorf("Err = %q Phase = %v", view.Err, view.Phase)
	}
	if view.Loading || view.Paginating {
		t.Error("loading flags should be cleared after an error")
	}
	if view.Page != 2 || view.TotalPages != 0 || view.TotalCount != 0 {
		t.Errorf("Page/TotalPages/TotalCount = %d/%d/%d, want 2/0/0", view.Page, view.TotalPages, view.TotalCount)
	}
	if view.HasNext() {
		t.Error("an error view should not offer a next page")
	}

	if _, err := c.FetchPage(ctx, query(2, catalog.Filters{}), true); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	view = c.View()
	if view.Err != "" || view.Phase != PhaseIdle || len(view.Items) == 0 {
		t.Errorf("after retry: Err=%q Phase=%v items=%d", view.Err, view.Phase, len(view.Items))
	}
}

// pageFailer fails every fetch of one page.
type pageFailer struct {
	Fetcher
	page int
}

func (f pageFailer) ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	if q.Page == f.page {
		return nil, testutil.ErrInjected
	}
	return f.Fetcher.ListDinosaurs(ctx, q)
}

func TestCoordinator_PrefetchFailureIsSwallowed(t *testing.T) {
	c := NewCoordinator(pageFailer{Fetcher: testutil.NewMemoryCatalog(), page: 2}, DefaultConfig())
	defer c.Close()

	if _, err := c.FetchPage(context.Background(), query(1, catalog.Filters{}), true); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	view := c.View()
	if view.Err != "" || view.Phase != PhaseIdle || len(view.Items) != catalog.DefaultPageSize {
		t.Errorf("failed prefetch leaked into the view: %+v", view)
	}
	if c.Cache().Len() != 1 {
		t.Errorf("cache holds %d pages, want 1", c.Cache().Len())
	}
}

func TestCoordinator_ResetAbortsInflight(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	mem.Gate = make(chan struct{})
	mem.Started = make(chan catalog.Query, 4)

	c := NewCoordinator(mem, noPrefetch())
	defer c.Close()

	c.Request(query(1, catalog.Filters{}))
	waitStarted(t, mem.Started)

	c.Reset()
	c.Wait()

	if c.Cache().Len() != 0 {
		t.Errorf("cache holds %d pages after reset, want 0", c.Cache().Len())
	}
	view := c.View()
	if view.Loading || view.Err != "" || len(view.Items) != 0 {
		t.Errorf("aborted fetch changed the view: %+v", view)
	}
}

func TestCoordinator_CallerCancellation(t *testing.T) {
	mem := testutil.NewMemoryCatalog()
	mem.Gate = make(chan struct{})
	mem.Started = make(chan catalog.Query, 4)

	c := NewCoordinator(mem, noPrefetch())
	defer func() {
		close(mem.Gate)
		c.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.FetchPage(ctx, query(1, catalog.Filters{}), true)
		done <- err
	}()
	waitStarted(t, mem.Started)
	cancel()

	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Errorf("error = %v, want ErrCancelled", err)
	}
	view := c.View()
	if view.Loading || view.Err != "" {
		t.Errorf("cancelled fetch left view %+v", view)
	}
}

func TestCoordinator_Closed(t *testing.T) {
	c := NewCoordinator(testutil.NewMemoryCatalog(), noPrefetch())
	c.Close()
	c.Close()

	if _, err := c.FetchPage(context.Background(), query(1, catalog.Filters{}), true); !errors.Is(err, ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
}

func names(items []catalog.Dinosaur) []string {
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.Name
	}
	return out
}

package browse

import (
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// viewRecorder collects every view passed to OnChange.
type viewRecorder struct {
	mu    sync.Mutex
	views []View
}

func (r *viewRecorder) record(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *viewRecorder) all() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

func noPrefetch() Config {
	cfg := DefaultConfig()
	cfg.Prefetch = false
	return cfg
}

func waitStarted(t *testing.T, started <-chan catalog.Query) catalog.Query {
	t.Helper()
	select {
	case q := <-started:
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch to start")
		return catalog.Query{}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func query(page int, f catalog.Filters) catalog.Query {
	return catalog.Query{Filters: f, Page: page, Limit: catalog.DefaultPageSize}
}

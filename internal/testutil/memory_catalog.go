package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// ErrInjected is the failure returned by MemoryCatalog.FailNext.
var ErrInjected = errors.New("injected failure")

// MemoryCatalog serves the fixture records as pages and records every
// call. Gate, when set, blocks each call until it receives a value or
// the context ends.
type MemoryCatalog struct {
	mu       sync.Mutex
	calls    []catalog.Query
	failNext int

	// Gate blocks calls until released (nil disables)
	Gate chan struct{}

	// Started receives each query as its call begins (nil disables)
	Started chan catalog.Query
}

// NewMemoryCatalog returns a catalog over the fixture records.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{}
}

// ListDinosaurs returns one filtered page.
func (m *MemoryCatalog) ListDinosaurs(ctx context.Context, q catalog.Query) (*catalog.Page, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	fail := m.failNext > 0
	if fail {
		m.failNext--
	}
	gate, started := m.Gate, m.Started
	m.mu.Unlock()

	if started != nil {
		select {
		case started <- q:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, ErrInjected
	}

	limit := catalog.NormalizeLimit(q.Limit)
	page := q.Page
	if page < 1 {
		page = 1
	}

	all := Filter(q.Filters)
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	data := make([]catalog.Dinosaur, end-start)
	copy(data, all[start:end])

	return &catalog.Page{
		Data:       data,
		Pagination: catalog.NewPagination(page, limit, len(all)),
	}, nil
}

// FailNext makes the next n calls fail with ErrInjected.
func (m *MemoryCatalog) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// Calls returns a copy of every query received so far.
func (m *MemoryCatalog) Calls() []catalog.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Query(nil), m.calls...)
}

// CallCount returns the number of calls received.
func (m *MemoryCatalog) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CountCalls returns how many calls asked for exactly q.
func (m *MemoryCatalog) CountCalls(q catalog.Query) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == q {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (m *MemoryCatalog) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

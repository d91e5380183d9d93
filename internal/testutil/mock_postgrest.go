package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPostgREST is a configurable fake of the Supabase REST interface
// serving dinosaur_details and image_data from memory. It understands the
// filter subset the gateway sends.
type MockPostgREST struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	dinosaurs []catalog.Dinosaur
	images    []catalog.Image
	apiKey    string

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
	failures          []MockResponse
}

// NewMockPostgREST starts a mock serving the fixture data. Requests must
// carry apiKey in the apikey header.
func NewMockPostgREST(apiKey string) *MockPostgREST {
	mock := &MockPostgREST{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		dinosaurs:  Dinosaurs(),
		images:     Images(),
		apiKey:     apiKey,
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		var failure *MockResponse
		if len(mock.failures) > 0 {
			failure = &mock.failures[0]
			mock.failures = mock.failures[1:]
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if failure != nil {
			writeMockResponse(w, *failure)
			return
		}

		if r.Header.Get("apikey") != mock.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
			return
		}

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL (the project URL, without /rest/v1).
func (m *MockPostgREST) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPostgREST) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPostgREST) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPostgREST) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockPostgREST) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeMockResponse(w, resp)
	})
}

// FailNext answers the next n requests with resp, whatever their path.
func (m *MockPostgREST) FailNext(n int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures = append(m.failures, resp)
	}
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPostgREST) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockPostgREST) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

func writeMockResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (m *MockPostgREST) defaultHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/rest/v1/dinosaur_details":
		m.serveDetails(w, r)
	case "/rest/v1/image_data":
		m.serveImages(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "relation does not exist"})
	}
}

var quotedValue = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)

func unquote(v string) string {
	v = strings.ReplaceAll(v, `\"`, `"`)
	return strings.ReplaceAll(v, `\\`, `\`)
}

// ilike matches s against a PostgREST pattern ("*" wildcard), ignoring case.
func ilike(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("(?is)^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func (m *MockPostgREST) serveDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var rows []catalog.Dinosaur
	for _, d := range m.dinosaurs {
		if matchDetail(d, q) {
			rows = append(rows, d)
		}
	}

	if q.Get("order") == "id.asc" {
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	}

	total := len(rows)
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset > total {
		offset = total
	}
	end := total
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && offset+n < end {
			end = offset + n
		}
	}
	rows = rows[offset:end]

	if strings.Contains(r.Header.Get("Prefer"), "count=exact") {
		if len(rows) == 0 {
			w.Header().Set("Content-Range", fmt.Sprintf("*/%d", total))
		} else {
			w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", offset, end-1, total))
		}
	}

	out := make([]map[string]any, len(rows))
	for i, d := range rows {
		out[i] = project(detailColumns(d), q.Get("select"))
	}
	writeJSON(w, http.StatusOK, out)
}

func matchDetail(d catalog.Dinosaur, q map[string][]string) bool {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	if v := get("diet"); v != "" && d.Diet != strings.TrimPrefix(v, "eq.") {
		return false
	}
	if v := get("locomotion_type"); v != "" && !ilike(strings.TrimPrefix(v, "ilike."), d.LocomotionType) {
		return false
	}
	if v := get("temporal_range"); v != "" && !ilike(strings.TrimPrefix(v, "ilike."), d.TemporalRange) {
		return false
	}
	if v := get("or"); v != "" {
		values := quotedValue.FindAllStringSubmatch(v, -1)
		if len(values) == 0 {
			return false
		}
		pattern := unquote(values[0][1])
		if !ilike(pattern, d.Name) && !ilike(pattern, d.Description) {
			return false
		}
	}
	if v := get("name"); v != "" {
		switch {
		case strings.HasPrefix(v, "eq."):
			if d.Name != strings.TrimPrefix(v, "eq.") {
				return false
			}
		case strings.HasPrefix(v, "in."):
			found := false
			for _, m := range quotedValue.FindAllStringSubmatch(v, -1) {
				if unquote(m[1]) == d.Name {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func detailColumns(d catalog.Dinosaur) map[string]any {
	row := map[string]any{
		"id":              d.ID,
		"name":            d.Name,
		"temporal_range":  d.TemporalRange,
		"diet":            d.Diet,
		"locomotion_type": d.LocomotionType,
		"description":     d.Description,
		"length":          nil,
		"weight":          nil,
		"height":          nil,
		"source_info":     nil,
		"image_info":      nil,
		"created_at":      nil,
	}
	if c := d.Classification; c != nil {
		row["domain"] = c.Domain
		row["kingdom"] = c.Kingdom
		row["phylum"] = c.Phylum
		row["clade"] = c.Clade
		row["family_info"] = c.Family
		row["genus_info"] = c.Genus
		row["species_info"] = c.Species
	}
	if s := d.Source; s != nil {
		row["source_info"] = map[string]string{"title": s.Title, "url": s.URL}
	}
	if d.ImageTitle != "" {
		row["image_info"] = map[string]string{"title": d.ImageTitle}
	}
	if d.CreatedAt != nil {
		row["created_at"] = d.CreatedAt.Format("2006-01-02T15:04:05.999999")
	}
	return row
}

// project keeps the selected columns ("*" keeps all).
func project(row map[string]any, sel string) map[string]any {
	if sel == "" || sel == "*" {
		return row
	}
	out := make(map[string]any)
	for _, col := range strings.Split(sel, ",") {
		col = strings.TrimSpace(col)
		out[col] = row[col]
	}
	return out
}

func (m *MockPostgREST) serveImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pattern := strings.TrimPrefix(q.Get("title"), "ilike.")

	out := []map[string]any{}
	for _, img := range m.images {
		if pattern != "" && !ilike(pattern, img.Title) {
			continue
		}
		out = append(out, map[string]any{
			"id":      img.ID,
			"title":   img.Title,
			"url":     img.Source,
			"author":  img.Attribution,
			"license": img.License,
		})
		if q.Get("limit") == "1" {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

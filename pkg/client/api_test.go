package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

func TestFilterValues(t *testing.T) {
	q := catalog.Query{
		Filters: catalog.Filters{Search: "rex", Diet: "carnivore", LocomotionType: "biped", Era: "Cretaceous"},
		Page:    2,
		Limit:   12,
	}

	v := FilterValues(q)
	want := map[string]string{
		"search":         "rex",
		"diet":           "carnivore",
		"locomotionType": "biped",
		"period":         "Cretaceous",
		"page":           "2",
		"limit":          "12",
	}
	for k, w := range want {
		if got := v.Get(k); got != w {
			t.Errorf("%s = %q, want %q", k, got, w)
		}
	}

	if empty := FilterValues(catalog.Query{}); len(empty) != 0 {
		t.Errorf("empty query encoded as %v", empty)
	}
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": status < 400}
	if status < 400 {
		body["data"] = data
	} else {
		body["error"] = data
	}
	json.NewEncoder(w).Encode(body)
}

func TestListDinosaurs(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dinosaurs" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		writeEnvelope(w, http.StatusOK, catalog.Page{
			Data:       []catalog.Dinosaur{{ID: 1, Name: "Allosaurus", Diet: "carnivore"}},
			Pagination: catalog.NewPagination(1, 12, 37),
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	page, err := c.ListDinosaurs(context.Background(), catalog.Query{
		Filters: catalog.Filters{Diet: "carnivore"},
		Page:    1,
		Limit:   12,
	})
	if err != nil {
		t.Fatalf("ListDinosaurs() error = %v", err)
	}

	if gotQuery != "diet=carnivore&limit=12&page=1" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(page.Data) != 1 || page.Data[0].Name != "Allosaurus" {
		t.Errorf("Data = %+v", page.Data)
	}
	if page.Pagination.TotalPages != 4 {
		t.Errorf("TotalPages = %d, want 4", page.Pagination.TotalPages)
	}
}

func TestListDinosaurs_Unsuccessful(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "success false", body: `{"success":false,"error":"Failed to fetch dinosaurs"}`},
		{name: "missing data", body: `{"success":true}`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			_, err := c.ListDinosaurs(context.Background(), catalog.Query{Page: 1, Limit: 12})
			if !errors.Is(err, ErrUnsuccessful) {
				t.Errorf("error = %v, want ErrUnsuccessful", err)
			}
		})
	}
}

func TestGetDinosaur(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/api/dinosaurs/Tyrannosaurus%20rex":
			writeEnvelope(w, http.StatusOK, catalog.Dinosaur{ID: 7, Name: "Tyrannosaurus rex"})
		default:
			writeEnvelope(w, http.StatusNotFound, "Dinosaur not found")
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	d, err := c.GetDinosaur(context.Background(), "Tyrannosaurus rex")
	if err != nil {
		t.Fatalf("GetDinosaur() error = %v", err)
	}
	if d.ID != 7 {
		t.Errorf("ID = %d, want 7", d.ID)
	}

	_, err = c.GetDinosaur(context.Background(), "Nessie")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCountStatsNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/dinosaurs/count":
			writeEnvelope(w, http.StatusOK, map[string]int{"total": 37})
		case "/api/dinosaurs/stats":
			writeEnvelope(w, http.StatusOK, catalog.Statistics{
				TotalDinosaurs:   37,
				DietDistribution: map[string]int{"carnivore": 10},
			})
		case "/api/dinosaurs/names":
			writeEnvelope(w, http.StatusOK, []string{"Allosaurus", "Brachiosaurus"})
		case "/api/dinosaurs/random":
			if r.URL.Query().Get("count") != "2" {
				writeEnvelope(w, http.StatusBadRequest, "bad count")
				return
			}
			writeEnvelope(w, http.StatusOK, []catalog.Dinosaur{{Name: "a"}, {Name: "b"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx := context.Background()

	n, err := c.Count(ctx)
	if err != nil || n != 37 {
		t.Errorf("Count() = %d, %v; want 37", n, err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.DietDistribution["carnivore"] != 10 {
		t.Errorf("DietDistribution = %v", stats.DietDistribution)
	}

	names, err := c.Names(ctx)
	if err != nil || len(names) != 2 {
		t.Errorf("Names() = %v, %v", names, err)
	}

	random, err := c.Random(ctx, 2)
	if err != nil || len(random) != 2 {
		t.Errorf("Random() = %v, %v", random, err)
	}
}

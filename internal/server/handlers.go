package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
	"github.com/Sternrassler/dino-catalog/pkg/characters"
	"github.com/Sternrassler/dino-catalog/pkg/gateway"
)

// maxRandomCount bounds the count parameter of /api/dinosaurs/random.
const maxRandomCount = 50

// intParam parses an optional positive integer query parameter.
func intParam(r *http.Request, name string, def int) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// listQuery reads the listing parameters. The era filter travels as
// "period".
func listQuery(r *http.Request) (catalog.Query, string) {
	page, ok := intParam(r, "page", 1)
	if !ok {
		return catalog.Query{}, "Invalid page parameter"
	}
	limit, ok := intParam(r, "limit", catalog.DefaultPageSize)
	if !ok {
		return catalog.Query{}, "Invalid limit parameter"
	}

	q := r.URL.Query()
	return catalog.Query{
		Filters: catalog.Filters{
			Search:         q.Get("search"),
			Diet:           q.Get("diet"),
			LocomotionType: q.Get("locomotionType"),
			Era:            q.Get("period"),
		}.Normalize(),
		Page:  page,
		Limit: catalog.NormalizeLimit(limit),
	}, ""
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q, msg := listQuery(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	page, err := s.gw.ListDinosaurs(r.Context(), q)
	if err != nil {
		failureEvent(r, err).Int("page", q.Page).Int("limit", q.Limit).Msg("Failed to list dinosaurs")
		writeError(w, http.StatusInternalServerError, "Failed to fetch dinosaurs")
		return
	}

	requestLog(r).Debug().
		Int("page", q.Page).
		Int("count", len(page.Data)).
		Int("total", page.Pagination.Total).
		Msg("Listed dinosaurs")
	s.writeData(w, r, page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	results, err := s.gw.SearchDinosaurs(r.Context(), term)
	if err != nil {
		failureEvent(r, err).Str("q", term).Msg("Search failed")
		writeError(w, http.StatusInternalServerError, "Failed to search dinosaurs")
		return
	}
	if results == nil {
		results = []catalog.Dinosaur{}
	}
	s.writeData(w, r, results)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	total, err := s.gw.CountDinosaurs(r.Context())
	if err != nil {
		failureEvent(r, err).Msg("Count failed")
		writeError(w, http.StatusInternalServerError, "Failed to get dinosaur count")
		return
	}
	s.writeData(w, r, map[string]int{"total": total})
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.gw.ListNames(r.Context())
	if err != nil {
		failureEvent(r, err).Msg("Listing names failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch dinosaur names")
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeData(w, r, names)
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(r, "count", gateway.DefaultRandomCount)
	if !ok || n > maxRandomCount {
		writeError(w, http.StatusBadRequest, "Invalid count parameter")
		return
	}

	picks, err := s.gw.RandomDinosaurs(r.Context(), n)
	if err != nil {
		failureEvent(r, err).Msg("Random pick failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch random dinosaurs")
		return
	}
	if picks == nil {
		picks = []catalog.Dinosaur{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, response{Success: true, Data: picks})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := gateway.CollectStatistics(r.Context(), s.gw)
	if err != nil {
		failureEvent(r, err).Msg("Statistics failed")
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	s.writeData(w, r, stats)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "Dinosaur name is required")
		return
	}

	d, err := s.gw.GetDinosaur(r.Context(), name)
	if errors.Is(err, gateway.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Dinosaur not found")
		return
	}
	if err != nil {
		failureEvent(r, err).Str("name", name).Msg("Detail lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch dinosaur details")
		return
	}
	s.writeData(w, r, d)
}

// handleCharacters runs the similarity search, optionally narrowed to a
// category ("all" or empty keeps everyone).
func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matches := characters.Search(q.Get("q"))

	if category := strings.TrimSpace(q.Get("category")); category != "" && category != "all" {
		kept := matches[:0]
		for _, m := range matches {
			if m.Character.HasCategory(category) {
				kept = append(kept, m)
			}
		}
		matches = kept
	}
	if matches == nil {
		matches = []characters.Match{}
	}
	s.writeData(w, r, matches)
}

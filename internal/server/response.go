package server

import (
	"encoding/json"
	"net/http"

	"github.com/Sternrassler/dino-catalog/pkg/cache"
)

// response is the envelope of every API answer.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"success":false,"error":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Success: false, Error: msg})
}

// writeData answers with data, or a bodiless 304 when the client already
// holds the same representation.
func (s *Server) writeData(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(response{Success: true, Data: data})
	if err != nil {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to encode response")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	etag := cache.ETag(body)
	cache.SetCacheHeaders(w.Header(), etag, s.maxAge)
	if cache.NotModified(r, etag) {
		cache.NotModifiedResponses.Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

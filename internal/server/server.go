// Package server exposes the catalog over HTTP.
//
// Every /api route answers with the envelope {success, data?, error?}.
// Successful GET responses carry an ETag and honour If-None-Match.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/dino-catalog/pkg/gateway"
	"github.com/Sternrassler/dino-catalog/pkg/metrics"
	"github.com/Sternrassler/dino-catalog/pkg/ratelimit"
)

// readyTimeout bounds each dependency check of /ready.
const readyTimeout = 2 * time.Second

// Config wires the server to its collaborators.
type Config struct {
	// Gateway serves every catalog read (required)
	Gateway gateway.Gateway

	// Redis is pinged by /ready when set
	Redis *redis.Client

	// Limiter guards the /api routes when set
	Limiter *ratelimit.Limiter

	// CacheMaxAge is advertised in Cache-Control on API responses
	CacheMaxAge time.Duration
}

// Server routes HTTP requests to the catalog gateway.
type Server struct {
	gw      gateway.Gateway
	redis   *redis.Client
	limiter *ratelimit.Limiter
	maxAge  time.Duration
	logger  zerolog.Logger
	handler http.Handler
}

// New builds the server and its route table.
func New(cfg Config) (*Server, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}

	s := &Server{
		gw:      cfg.Gateway,
		redis:   cfg.Redis,
		limiter: cfg.Limiter,
		maxAge:  cfg.CacheMaxAge,
		logger:  log.With().Str("component", "server").Logger(),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler with logging and metrics applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/dinosaurs", s.handleList)
	api.HandleFunc("GET /api/dinosaurs/search", s.handleSearch)
	api.HandleFunc("GET /api/dinosaurs/count", s.handleCount)
	api.HandleFunc("GET /api/dinosaurs/names", s.handleNames)
	api.HandleFunc("GET /api/dinosaurs/random", s.handleRandom)
	api.HandleFunc("GET /api/dinosaurs/stats", s.handleStats)
	api.HandleFunc("GET /api/dinosaurs/{name}", s.handleDetail)
	api.HandleFunc("GET /api/characters/search", s.handleCharacters)
	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	var apiHandler http.Handler = api
	if s.limiter != nil {
		apiHandler = s.limiter.Middleware(api)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	return requestLogger(s.logger, instrument(recoverer(mux)))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// handleReady pings the gateway and, when configured, Redis.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	check := func(name string, ping func(context.Context) error) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			ready = false
			checks[name] = err.Error()
			s.logger.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
			return
		}
		checks[name] = "ok"
	}

	check("gateway", s.gw.Ping)
	if s.redis != nil {
		check("redis", func(ctx context.Context) error { return s.redis.Ping(ctx).Err() })
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, response{Success: false, Data: checks, Error: "Service not ready"})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: checks})
}

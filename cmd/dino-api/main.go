package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/dino-catalog/internal/config"
	"github.com/Sternrassler/dino-catalog/internal/server"
	"github.com/Sternrassler/dino-catalog/pkg/cache"
	"github.com/Sternrassler/dino-catalog/pkg/gateway"
	"github.com/Sternrassler/dino-catalog/pkg/logging"
	"github.com/Sternrassler/dino-catalog/pkg/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging())
	logger := logging.NewLogger("dino-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// app holds everything run needs to serve and later release.
type app struct {
	handler http.Handler
	closers []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("gateway", cfg.Gateway()).Msg("Starting catalog API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setup connects the store, the optional Redis cache and rate limiter
// and builds the HTTP handler.
func setup(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	gw, err := openGateway(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		a.Close()
		return nil, err
	}

	var rdb *redis.Client
	var limiter *ratelimit.Limiter
	if opts != nil {
		rdb = redis.NewClient(opts)
		a.closers = append(a.closers, rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

		cached := gateway.NewCached(gw, cache.NewManager(rdb, cfg.CacheTTL))
		if cfg.SeedPath != "" {
			// freshly imported data replaces whatever was cached
			if n, err := cached.Purge(ctx); err != nil {
				logger.Warn().Err(err).Msg("Cache purge failed")
			} else if n > 0 {
				logger.Info().Int("keys", n).Msg("Purged cached catalog entries")
			}
		}
		gw = cached

		if cfg.RateLimitPerMinute > 0 {
			rl := ratelimit.DefaultConfig()
			rl.Limit = cfg.RateLimitPerMinute
			rl.TrustForwarded = cfg.TrustProxy
			limiter = ratelimit.NewLimiter(rdb, rl, logging.NewLogger("ratelimit"))
		}
	} else {
		logger.Info().Msg("REDIS_URL not set - shared cache and rate limiting disabled")
	}

	srv, err := server.New(server.Config{
		Gateway:     gw,
		Redis:       rdb,
		Limiter:     limiter,
		CacheMaxAge: cfg.CacheTTL,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.handler = srv.Handler()
	return a, nil
}

// openGateway selects the hosted store when configured, else the local
// SQLite file (seeded from SEED_PATH when set).
func openGateway(ctx context.Context, cfg *config.Config, a *app) (gateway.Gateway, error) {
	if cfg.Gateway() == config.GatewayPostgREST {
		pg, err := gateway.NewPostgREST(gateway.PostgRESTConfig{
			URL:       cfg.SupabaseURL,
			AnonKey:   cfg.SupabaseAnonKey,
			UserAgent: cfg.UserAgent,
			RateLimit: cfg.UpstreamRPS,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgrest gateway: %w", err)
		}
		return pg, nil
	}

	store, err := gateway.OpenSQLStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	a.closers = append(a.closers, store)

	if cfg.SeedPath != "" {
		if err := store.ImportFile(ctx, cfg.SeedPath); err != nil {
			return nil, fmt.Errorf("import seed: %w", err)
		}
	}
	return store, nil
}

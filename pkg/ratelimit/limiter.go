package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	requestsAllowed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dino_rate_limit_allowed_total",
		Help: "Total number of requests admitted by the rate limiter",
	})

	requestsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dino_rate_limit_blocks_total",
		Help: "Total number of requests rejected with 429",
	})

	limiterErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dino_rate_limit_errors_total",
		Help: "Total number of rate limit checks that failed and were let through",
	})
)

// ErrNoClient is returned when a request cannot be attributed to a client.
var ErrNoClient = errors.New("no client identifier")

// Config holds limiter configuration.
type Config struct {
	// Limit is the number of requests per client and window.
	Limit int

	// Window is the length of one counting window.
	Window time.Duration

	// KeyPrefix namespaces the counters in Redis.
	KeyPrefix string

	// TrustForwarded identifies clients by X-Forwarded-For / X-Real-IP
	// instead of the connection address. Enable only behind a proxy.
	TrustForwarded bool
}

// DefaultConfig returns a limiter configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Limit:     DefaultLimit,
		Window:    DefaultWindow,
		KeyPrefix: DefaultKeyPrefix,
	}
}

// Limiter counts requests per client in fixed windows stored in Redis.
type Limiter struct {
	redis  *redis.Client
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewLimiter creates a limiter. Zero config fields take their defaults.
func NewLimiter(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Limiter {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	return &Limiter{
		redis:  redisClient,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config {
	return l.cfg
}

func (l *Limiter) key(client string, start time.Time) string {
	return l.cfg.KeyPrefix + client + ":" + strconv.FormatInt(start.Unix(), 10)
}

// Allow counts one request for client and returns the resulting state.
func (l *Limiter) Allow(ctx context.Context, client string) (*State, error) {
	if client == "" {
		return nil, ErrNoClient
	}

	start := windowStart(l.now(), l.cfg.Window)
	key := l.key(client, start)

	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("count request: %w", err)
	}

	state := &State{
		Client:  client,
		Limit:   l.cfg.Limit,
		Used:    int(incr.Val()),
		ResetAt: start.Add(l.cfg.Window),
	}

	switch {
	case !state.Allowed():
		requestsBlocked.Inc()
		l.logger.Warn().
			Str("client", client).
			Int("used", state.Used).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit exceeded - rejecting request")
	case state.NearLimit():
		requestsAllowed.Inc()
		l.logger.Debug().
			Str("client", client).
			Int("remaining", state.Remaining()).
			Msg("Client close to rate limit")
	default:
		requestsAllowed.Inc()
	}

	return state, nil
}

// Status returns the client's state in the current window without
// counting a request.
func (l *Limiter) Status(ctx context.Context, client string) (*State, error) {
	if client == "" {
		return nil, ErrNoClient
	}

	start := windowStart(l.now(), l.cfg.Window)
	used, err := l.redis.Get(ctx, l.key(client, start)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get request count: %w", err)
	}

	return &State{
		Client:  client,
		Limit:   l.cfg.Limit,
		Used:    used,
		ResetAt: start.Add(l.cfg.Window),
	}, nil
}

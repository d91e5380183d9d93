// Package config reads the runtime configuration of the catalog binaries
// from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/dino-catalog/pkg/cache"
	"github.com/Sternrassler/dino-catalog/pkg/logging"
)

// Gateway kinds selected by the configuration.
const (
	GatewayPostgREST = "postgrest"
	GatewaySQLite    = "sqlite"
)

// Config is the runtime configuration shared by dino-api and dinoctl.
type Config struct {
	// Port the API server listens on
	Port string

	// Hosted store (PostgREST gateway when URL is set)
	SupabaseURL     string
	SupabaseAnonKey string

	// Local store (SQLite gateway otherwise)
	DatabasePath string
	SeedPath     string

	// RedisURL enables the shared cache and the rate limiter. Either a
	// redis:// URL or host:port. Empty disables both.
	RedisURL string

	CacheTTL time.Duration

	// RateLimitPerMinute per client; 0 disables rate limiting
	RateLimitPerMinute int
	TrustProxy         bool

	LogLevel  string
	LogPretty bool

	// UpstreamRPS paces requests to the hosted store (0 disables)
	UpstreamRPS float64
	UserAgent   string

	// APIURL is the catalog API dinoctl talks to
	APIURL string
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	return Config{
		Port:               "8080",
		DatabasePath:       "dino.db",
		CacheTTL:           cache.DefaultTTL,
		RateLimitPerMinute: 60,
		LogLevel:           string(logging.LevelInfo),
		UpstreamRPS:        20,
		UserAgent:          "dino-catalog/0.1.0",
		APIURL:             "http://localhost:8080",
	}
}

// Load reads the configuration from the environment. Variables missing
// from the environment are taken from the given .env files (default
// ".env"); missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	fileEnv := make(map[string]string)
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vars {
			if _, ok := fileEnv[k]; !ok {
				fileEnv[k] = v
			}
		}
	}

	return FromEnv(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	})
}

// FromEnv builds the configuration from a variable lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	env := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	env("PORT", &cfg.Port)
	env("SUPABASE_URL", &cfg.SupabaseURL)
	env("SUPABASE_ANON_KEY", &cfg.SupabaseAnonKey)
	env("DATABASE_PATH", &cfg.DatabasePath)
	env("SEED_PATH", &cfg.SeedPath)
	env("REDIS_URL", &cfg.RedisURL)
	env("LOG_LEVEL", &cfg.LogLevel)
	env("USER_AGENT", &cfg.UserAgent)
	env("DINO_API_URL", &cfg.APIURL)

	var err error
	if v := getenv("CACHE_TTL"); v != "" {
		if cfg.CacheTTL, err = time.ParseDuration(v); err != nil || cfg.CacheTTL <= 0 {
			return nil, fmt.Errorf("invalid CACHE_TTL %q", v)
		}
	}
	if v := getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if cfg.RateLimitPerMinute, err = strconv.Atoi(v); err != nil || cfg.RateLimitPerMinute < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %q", v)
		}
	}
	if v := getenv("TRUST_PROXY"); v != "" {
		if cfg.TrustProxy, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
	}
	if v := getenv("LOG_PRETTY"); v != "" {
		if cfg.LogPretty, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid LOG_PRETTY %q: %w", v, err)
		}
	}
	if v := getenv("UPSTREAM_RPS"); v != "" {
		if cfg.UpstreamRPS, err = strconv.ParseFloat(v, 64); err != nil || cfg.UpstreamRPS < 0 {
			return nil, fmt.Errorf("invalid UPSTREAM_RPS %q", v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	if c.SupabaseURL != "" && c.SupabaseAnonKey == "" {
		return errors.New("SUPABASE_ANON_KEY is required when SUPABASE_URL is set")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	return nil
}

// Gateway returns the store the API server reads from.
func (c *Config) Gateway() string {
	if c.SupabaseURL != "" {
		return GatewayPostgREST
	}
	return GatewaySQLite
}

// Addr is the listen address of the API server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// RedisOptions parses RedisURL. It returns nil when Redis is disabled.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	if strings.Contains(c.RedisURL, "://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(strings.ToLower(c.LogLevel))
	lc.Pretty = c.LogPretty
	return lc
}

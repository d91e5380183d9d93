package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupLimiter(t *testing.T, cfg Config) *Limiter {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})

	l := NewLimiter(rdb, cfg, zerolog.Nop())
	fixed := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	return l
}

func TestNewLimiter_Defaults(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	l := NewLimiter(rdb, Config{}, zerolog.Nop())
	cfg := l.Config()

	if cfg.Limit != DefaultLimit || cfg.Window != DefaultWindow || cfg.KeyPrefix != DefaultKeyPrefix {
		t.Errorf("Config() = %+v, want defaults", cfg)
	}
}

func TestNewLimiter_NilRedisPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewLimiter(nil) should panic")
		}
	}()
	NewLimiter(nil, DefaultConfig(), zerolog.Nop())
}

func TestLimiter_Allow(t *testing.T) {
	l := setupLimiter(t, Config{Limit: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		state, err := l.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow() #%d error = %v", i, err)
		}
		if !state.Allowed() {
			t.Fatalf("Allow() #%d should be allowed", i)
		}
		if state.Remaining() != 3-i {
			t.Errorf("Remaining() #%d = %d, want %d", i, state.Remaining(), 3-i)
		}
	}

	state, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if state.Allowed() {
		t.Error("fourth request should be rejected")
	}
	want := time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC)
	if !state.ResetAt.Equal(want) {
		t.Errorf("ResetAt = %v, want %v", state.ResetAt, want)
	}

	other, err := l.Allow(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !other.Allowed() || other.Used != 1 {
		t.Errorf("other client state = %+v, want a fresh window", other)
	}
}

func TestLimiter_NextWindow(t *testing.T) {
	l := setupLimiter(t, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	if _, err := l.Allow(ctx, "c"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if s, _ := l.Allow(ctx, "c"); s.Allowed() {
		t.Fatal("second request in the window should be rejected")
	}

	next := time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC)
	l.now = func() time.Time { return next }

	s, err := l.Allow(ctx, "c")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !s.Allowed() {
		t.Error("a new window should reset the budget")
	}
}

func TestLimiter_Status(t *testing.T) {
	l := setupLimiter(t, Config{Limit: 5, Window: time.Minute})
	ctx := context.Background()

	s, err := l.Status(ctx, "c")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if s.Used != 0 || s.Remaining() != 5 {
		t.Errorf("unused client state = %+v", s)
	}

	l.Allow(ctx, "c")
	l.Allow(ctx, "c")

	s, err = l.Status(ctx, "c")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if s.Used != 2 {
		t.Errorf("Used = %d, want 2 (Status must not count)", s.Used)
	}
}

func TestLimiter_NoClient(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()
	l := NewLimiter(rdb, DefaultConfig(), zerolog.Nop())

	if _, err := l.Allow(context.Background(), ""); !errors.Is(err, ErrNoClient) {
		t.Errorf("Allow(\"\") error = %v, want ErrNoClient", err)
	}
	if _, err := l.Status(context.Background(), ""); !errors.Is(err, ErrNoClient) {
		t.Errorf("Status(\"\") error = %v, want ErrNoClient", err)
	}
}

func TestMiddleware_Headers(t *testing.T) {
	l := setupLimiter(t, Config{Limit: 2, Window: time.Minute})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := l.Middleware(ok)

	codes := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, want := range codes {
		req := httptest.NewRequest(http.MethodGet, "/api/dinosaurs", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		if rec.Code != want {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, want)
		}
		if got := rec.Header().Get(HeaderLimit); got != "2" {
			t.Errorf("%s = %q, want 2", HeaderLimit, got)
		}
		wantRemaining := strconv.Itoa(max(0, 1-i))
		if got := rec.Header().Get(HeaderRemaining); got != wantRemaining {
			t.Errorf("request %d %s = %q, want %s", i+1, HeaderRemaining, got, wantRemaining)
		}
	}
}

func TestMiddleware_Rejection(t *testing.T) {
	l := setupLimiter(t, Config{Limit: 1, Window: time.Minute})
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "50" {
		t.Errorf("Retry-After = %q, want 50", got)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Errorf("body = %+v, want success=false with an error", body)
	}
}

func TestMiddleware_FailOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	l := NewLimiter(rdb, DefaultConfig(), zerolog.Nop())
	called := false
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called || rec.Code != http.StatusOK {
		t.Errorf("request should pass through when Redis is down (called=%v, status=%d)", called, rec.Code)
	}
	if rec.Header().Get(HeaderLimit) != "" {
		t.Error("no budget headers expected without a counted request")
	}
}

func TestClientID(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		trust   bool
		want    string
	}{
		{name: "connection address", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "forwarded ignored", remote: "192.0.2.1:1234", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, want: "192.0.2.1"},
		{name: "forwarded first hop", remote: "192.0.2.1:1234", headers: map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"}, trust: true, want: "203.0.113.9"},
		{name: "real ip", remote: "192.0.2.1:1234", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, trust: true, want: "198.51.100.4"},
		{name: "no port", remote: "192.0.2.1", want: "192.0.2.1"},
		{name: "ipv6", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientID(r, tt.trust); got != tt.want {
				t.Errorf("ClientID() = %q, want %q", got, tt.want)
			}
		})
	}
}

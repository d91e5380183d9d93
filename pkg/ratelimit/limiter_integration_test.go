//go:build integration

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}
	return client, cleanup
}

func TestLimiter_Integration_SharedBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	// two instances share one budget through Redis
	a := NewLimiter(redisClient, Config{Limit: 10, Window: time.Minute}, zerolog.Nop())
	b := NewLimiter(redisClient, Config{Limit: 10, Window: time.Minute}, zerolog.Nop())

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		l := a
		if i%2 == 1 {
			l = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := l.Allow(context.Background(), "shared")
			if err != nil {
				t.Errorf("Allow() error = %v", err)
				return
			}
			if s.Allowed() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("allowed = %d, want 10", allowed)
	}
}

func TestLimiter_Integration_KeyExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	l := NewLimiter(redisClient, Config{Limit: 5, Window: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	if _, err := l.Allow(ctx, "ttl"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	keys, err := redisClient.Keys(ctx, DefaultKeyPrefix+"ttl:*").Result()
	if err != nil || len(keys) != 1 {
		t.Fatalf("Keys() = %v, %v; want one counter", keys, err)
	}
	ttl, err := redisClient.TTL(ctx, keys[0]).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}
}

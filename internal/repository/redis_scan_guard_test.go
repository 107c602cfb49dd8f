package repository

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	pkgredis "github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/redis"
)

// getRedisClient connects to the test Redis instance
func getRedisClient(t *testing.T) *pkgredis.Client {
	skipIfNoIntegration(t)

	cfg := pkgredis.DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("TEST_REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			t.Fatalf("Invalid TEST_REDIS_PORT %q: %v", port, err)
		}
		cfg.Port = p
	}
	cfg.MaxRetries = 0

	client, err := pkgredis.NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

func TestRedisScanGuard_Acquire(t *testing.T) {
	client := getRedisClient(t)
	guard := NewRedisScanGuard(client)
	ctx := context.Background()

	if err := guard.LoadScripts(ctx); err != nil {
		t.Fatalf("LoadScripts() error = %v", err)
	}

	window := 300 * time.Millisecond
	payload := "user-guard-test:" + time.Now().Format("150405.000000")

	acquired, err := guard.Acquire(ctx, payload, window)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Fatal("Acquire() first scan = false, want true")
	}

	acquired, err = guard.Acquire(ctx, payload, window)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if acquired {
		t.Error("Acquire() duplicate inside window = true, want suppressed")
	}

	// A different payload is an independent key, not suppressed.
	acquired, err = guard.Acquire(ctx, payload+":other", window)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Error("Acquire() distinct payload = false, want true")
	}

	time.Sleep(window + 100*time.Millisecond)

	acquired, err = guard.Acquire(ctx, payload, window)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Error("Acquire() after window expiry = false, want re-processed")
	}
}

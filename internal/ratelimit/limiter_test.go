package ratelimit

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

func newTestV8Client(t *testing.T) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestLimiterAllowsWithinBurst(t *testing.T) {
	client := newTestV8Client(t)
	l := New(client, nil, HostConfig{RequestsPerSecond: 10, BurstSize: 5})

	res, err := l.Allow(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected first request within burst to be allowed")
	}
}

func TestLimiterPerHostConfigOverridesFallback(t *testing.T) {
	client := newTestV8Client(t)
	l := New(client, map[string]HostConfig{
		"tight.example.com": {RequestsPerSecond: 0.001, BurstSize: 1},
	}, HostConfig{RequestsPerSecond: 1000, BurstSize: 1000})

	res, _ := l.AllowN(context.Background(), "tight.example.com", 1)
	if !res.Allowed {
		t.Fatalf("expected first request to be allowed")
	}
	res, _ = l.AllowN(context.Background(), "tight.example.com", 1)
	if res.Allowed {
		t.Fatalf("expected second request to a tightly-bucketed host to be denied")
	}
}

func TestLocalTokenBucketDeniesWhenExhausted(t *testing.T) {
	b := NewLocalTokenBucketBackend()
	ctx := context.Background()

	allowed, _, _ := b.CheckRateLimit(ctx, "host", 2, 1, 1)
	if !allowed {
		t.Fatalf("expected first request allowed")
	}
	allowed, _, _ = b.CheckRateLimit(ctx, "host", 2, 1, 1)
	if !allowed {
		t.Fatalf("expected second request allowed (burst 2)")
	}
	allowed, _, _ = b.CheckRateLimit(ctx, "host", 2, 1, 1)
	if allowed {
		t.Fatalf("expected third immediate request denied")
	}
}

func TestFallbackBackendDegradesOnPrimaryError(t *testing.T) {
	primary := erroringBackend{}
	fb := NewFallbackBackend(primary)

	allowed, _, err := fb.CheckRateLimit(context.Background(), "host", 5, 1, 1)
	if err != nil {
		t.Fatalf("expected fallback to swallow primary error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected local fallback to allow first request")
	}
	if !fb.Degraded() {
		t.Fatalf("expected backend to report degraded after primary failure")
	}
}

type erroringBackend struct{}

func (erroringBackend) CheckRateLimit(context.Context, string, int, float64, int) (bool, int, error) {
	return false, 0, context.DeadlineExceeded
}

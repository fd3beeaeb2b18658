package varstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/purc-go/purc/internal/atom"
	"github.com/purc-go/purc/internal/variant"
)

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
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

func TestBindRunnerVariableRoundTrips(t *testing.T) {
	client := newTestRedisClient(t)
	heap := variant.NewHeap()
	tbl := atom.NewTable()
	s := NewFromClient(client, "", heap, tbl)

	v := heap.MakeString("dev-runner")
	if err := s.BindRunnerVariable("runner-1", "env", v); err != nil {
		t.Fatalf("BindRunnerVariable failed: %v", err)
	}

	got := s.RunnerVariable("runner-1", "env")
	if got == nil {
		t.Fatalf("expected variable to round-trip")
	}
	if str, _ := got.GetStringConst(); str != "dev-runner" {
		t.Fatalf("expected dev-runner, got %q", str)
	}
}

func TestSessionVariableIsolatedFromRunner(t *testing.T) {
	client := newTestRedisClient(t)
	heap := variant.NewHeap()
	tbl := atom.NewTable()
	s := NewFromClient(client, "", heap, tbl)

	s.BindSessionVariable("sess-1", "theme", heap.MakeString("dark"))

	if got := s.RunnerVariable("sess-1", "theme"); got != nil {
		t.Fatalf("expected session variable to not leak into runner namespace")
	}
	got := s.SessionVariable("sess-1", "theme")
	if got == nil {
		t.Fatalf("expected session variable to be set")
	}
}

func TestRunnerVariableMissingReturnsNil(t *testing.T) {
	client := newTestRedisClient(t)
	heap := variant.NewHeap()
	tbl := atom.NewTable()
	s := NewFromClient(client, "", heap, tbl)

	if got := s.RunnerVariable("runner-1", "absent"); got != nil {
		t.Fatalf("expected nil for unset variable")
	}
}

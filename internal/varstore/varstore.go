// Package varstore implements coroutine.VariableStore on Redis, so
// `bind_runner_variable`/`bind_session_variable` (spec.md §4.D) survive
// across a process restart and are visible to every runner sharing the
// same Redis instance, not just the process that set them. Grounded on
// the teacher's internal/cache.RedisCache client setup.
package varstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/purc-go/purc/internal/atom"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
)

const defaultKeyPrefix = "purc:var:"

// Config configures the Redis connection backing a Store.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // default: "purc:var:"
}

// Store is a Redis-backed coroutine.VariableStore, satisfying cross-
// process `bind_runner_variable`/`bind_session_variable`.
type Store struct {
	client *redis.Client
	prefix string
	heap   *variant.Heap
	table  *atom.Table
}

// New creates a Redis-backed variable store. heap and table are used to
// decode values read back from Redis through variant.FromJSON — callers
// must pass the same heap/table their coroutines run against.
func New(cfg Config, heap *variant.Heap, table *atom.Table) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{client: client, prefix: prefix, heap: heap, table: table}
}

// NewFromClient wraps an existing Redis client, the way the teacher's
// cache package offers a from-client constructor for connection reuse.
func NewFromClient(client *redis.Client, prefix string, heap *variant.Heap, table *atom.Table) *Store {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, heap: heap, table: table}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) runnerKey(runnerID, name string) string {
	return s.prefix + "runner:" + runnerID + ":" + name
}

func (s *Store) sessionKey(sessionID, name string) string {
	return s.prefix + "session:" + sessionID + ":" + name
}

func (s *Store) set(ctx context.Context, key string, val *variant.Variant) *perr.Error {
	data, jerr := val.ToJSON()
	if jerr != nil {
		return jerr
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return perr.New(perr.IO)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) *variant.Variant {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil || err != nil {
		return nil
	}
	v, jerr := s.heap.FromJSON(data)
	if jerr != nil {
		return nil
	}
	return v
}

// BindRunnerVariable implements coroutine.VariableStore.
func (s *Store) BindRunnerVariable(runnerID, name string, val *variant.Variant) *perr.Error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.set(ctx, s.runnerKey(runnerID, name), val)
}

// RunnerVariable implements coroutine.VariableStore.
func (s *Store) RunnerVariable(runnerID, name string) *variant.Variant {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.get(ctx, s.runnerKey(runnerID, name))
}

// BindSessionVariable implements coroutine.VariableStore.
func (s *Store) BindSessionVariable(sessionID, name string, val *variant.Variant) *perr.Error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.set(ctx, s.sessionKey(sessionID, name), val)
}

// SessionVariable implements coroutine.VariableStore.
func (s *Store) SessionVariable(sessionID, name string) *variant.Variant {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.get(ctx, s.sessionKey(sessionID, name))
}

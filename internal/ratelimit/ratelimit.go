// Package ratelimit throttles outbound fetcher requests per session host
// (spec.md §4.F), so one runaway `request`/`init ... from 'url'` loop
// against a single origin cannot starve every other coroutine's fetches.
// Backend is the low-level token-bucket check; Limiter is the
// host-keyed facade the fetcher wires in ahead of its circuit breaker.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Backend performs an atomic token-bucket check for key, returning
// whether the request is allowed and how many tokens remain.
type Backend interface {
	CheckRateLimit(ctx context.Context, key string, maxTokens int, refillRate float64, requested int) (bool, int, error)
}

// tokenBucketScript is a Redis Lua script that atomically performs
// token bucket rate limiting:
//  1. Reads the current bucket state (tokens + last_refill timestamp)
//  2. Refills tokens based on elapsed time
//  3. Checks if enough tokens are available for the request
//  4. Deducts tokens if allowed
//
// Keys: KEYS[1] = bucket key
// Args: ARGV[1] = max_tokens, ARGV[2] = refill_rate, ARGV[3] = now (unix seconds), ARGV[4] = requested
var tokenBucketScript = redis.NewScript(`
local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or tonumber(ARGV[1])
local last = tonumber(bucket[2]) or tonumber(ARGV[3])

local elapsed = tonumber(ARGV[3]) - last
tokens = math.min(tonumber(ARGV[1]), tokens + elapsed * tonumber(ARGV[2]))

local allowed = 0
if tokens >= tonumber(ARGV[4]) then
    tokens = tokens - tonumber(ARGV[4])
    allowed = 1
end

redis.call('HMSET', KEYS[1], 'tokens', tokens, 'last_refill', ARGV[3])
redis.call('EXPIRE', KEYS[1], math.ceil(tonumber(ARGV[1]) / tonumber(ARGV[2])) + 10)

return {allowed, math.floor(tokens)}
`)

// HostConfig holds the token bucket parameters applied to one fetcher
// host (or the default bucket when no per-host override is configured).
type HostConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// Limiter implements Redis-based token bucket rate limiting keyed by
// fetcher destination host.
type Limiter struct {
	redis   *redis.Client
	hosts   map[string]HostConfig
	fallback HostConfig
}

// New creates a host-keyed rate limiter. hosts maps a host name to its
// own bucket config; any host absent from the map uses fallback.
func New(client *redis.Client, hosts map[string]HostConfig, fallback HostConfig) *Limiter {
	if hosts == nil {
		hosts = make(map[string]HostConfig)
	}
	return &Limiter{redis: client, hosts: hosts, fallback: fallback}
}

// Result contains the result of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Allow checks if a single request to host is allowed.
func (l *Limiter) Allow(ctx context.Context, host string) (Result, error) {
	return l.AllowN(ctx, host, 1)
}

// AllowN checks if n requests to host are allowed.
func (l *Limiter) AllowN(ctx context.Context, host string, n int) (Result, error) {
	cfg := l.configFor(host)

	now := float64(time.Now().Unix())

	result, err := tokenBucketScript.Run(ctx, l.redis, []string{KeyForHost(host)},
		cfg.BurstSize,
		cfg.RequestsPerSecond,
		now,
		n,
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}
	if len(result) != 2 {
		return Result{}, fmt.Errorf("unexpected result length: %d", len(result))
	}

	allowed, _ := result[0].(int64)
	remaining, _ := result[1].(int64)

	tokensNeeded := float64(cfg.BurstSize) - float64(remaining)
	refillSeconds := tokensNeeded / cfg.RequestsPerSecond
	resetAt := time.Now().Add(time.Duration(refillSeconds) * time.Second)

	return Result{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}, nil
}

func (l *Limiter) configFor(host string) HostConfig {
	if cfg, ok := l.hosts[host]; ok {
		return cfg
	}
	return l.fallback
}

// KeyForHost returns the rate-limit bucket key for a fetcher destination
// host.
func KeyForHost(host string) string {
	return "purc:rl:host:" + host
}

// AllowHost adapts Allow to fetcher.Throttle's narrower (bool, error)
// signature, so fetcher.Manager doesn't need to import ratelimit.Result.
func (l *Limiter) AllowHost(ctx context.Context, host string) (bool, error) {
	res, err := l.Allow(ctx, host)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

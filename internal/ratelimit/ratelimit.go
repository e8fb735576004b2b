// Package ratelimit provides fixed-window counters keyed by caller-chosen strings.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
}

// Limiter admits at most a fixed number of hits per key per window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Memory is a single-process limiter. Counters are not shared between instances.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   int
}

// sweepEvery is the number of Allow calls between scans for expired buckets.
const sweepEvery = 1024

// NewMemory creates an in-process limiter.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow counts a hit for key.
func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls >= sweepEvery {
		m.calls = 0
		for k, b := range m.buckets {
			if !now.Before(b.resetAt) {
				delete(m.buckets, k)
			}
		}
	}

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(m.window)}
		m.buckets[key] = b
	}
	if b.count >= m.limit {
		return Result{Allowed: false, ResetAfter: b.resetAt.Sub(now)}, nil
	}
	b.count++
	return Result{Allowed: true, Remaining: m.limit - b.count, ResetAfter: b.resetAt.Sub(now)}, nil
}

// Redis shares counters across instances using INCR with a window expiry.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedis creates a Redis-backed limiter. Keys are stored as prefix+key.
func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow counts a hit for key.
func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	k := r.prefix + key
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, k, r.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit ttl: %w", err)
	}
	if ttl < 0 {
		// Key lost its expiry (e.g. crash between INCR and PEXPIRE); restart the window.
		if err := r.client.PExpire(ctx, k, r.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl = r.window
	}
	if int(count) > r.limit {
		return Result{Allowed: false, ResetAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: r.limit - int(count), ResetAfter: ttl}, nil
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(10, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		res, err := m.Allow(ctx, "invite:u:w")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
		assert.Equal(t, 9-i, res.Remaining)
	}
	res, _ := m.Allow(ctx, "invite:u:w")
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.ResetAfter)

	res, _ = m.Allow(ctx, "invite:u:other")
	assert.True(t, res.Allowed, "keys are independent")

	now = now.Add(time.Minute)
	res, _ = m.Allow(ctx, "invite:u:w")
	assert.True(t, res.Allowed, "window elapsed")
}

func TestMemoryConcurrent(t *testing.T) {
	m := NewMemory(50, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := m.Allow(context.Background(), "k")
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemorySweepsExpiredBuckets(t *testing.T) {
	now := time.Now()
	m := NewMemory(1, time.Second)
	m.now = func() time.Time { return now }
	for i := 0; i < sweepEvery-1; i++ {
		_, _ = m.Allow(context.Background(), fmt.Sprintf("k%d", i))
	}
	now = now.Add(2 * time.Second)
	_, _ = m.Allow(context.Background(), "fresh")
	assert.Len(t, m.buckets, 1)
}

func TestMemorySweepRunsOncePerInterval(t *testing.T) {
	now := time.Now()
	m := NewMemory(1, time.Second)
	m.now = func() time.Time { return now }
	for i := 0; i < sweepEvery; i++ {
		_, _ = m.Allow(context.Background(), fmt.Sprintf("k%d", i))
	}
	require.Len(t, m.buckets, sweepEvery)

	// Expired buckets stay until the next interval boundary.
	now = now.Add(2 * time.Second)
	for i := 0; i < sweepEvery-1; i++ {
		_, _ = m.Allow(context.Background(), "fresh")
	}
	assert.Len(t, m.buckets, sweepEvery+1)

	_, _ = m.Allow(context.Background(), "fresh")
	assert.Len(t, m.buckets, 1)
}

func TestRedisFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedis(client, "ratelimit:", 3, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "invite:u:w")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, "invite:u:w")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, mr.Exists("ratelimit:invite:u:w"))

	mr.FastForward(time.Minute)
	res, err = l.Allow(ctx, "invite:u:w")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestRedisSharedAcrossLimiters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := NewRedis(client, "rl:", 2, time.Minute)
	b := NewRedis(client, "rl:", 2, time.Minute)
	ctx := context.Background()
	r1, _ := a.Allow(ctx, "k")
	r2, _ := b.Allow(ctx, "k")
	r3, _ := a.Allow(ctx, "k")
	assert.True(t, r1.Allowed)
	assert.True(t, r2.Allowed)
	assert.False(t, r3.Allowed)
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedis(client, "rl:", 1, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
}

package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Both stores count in fixed windows aligned to the window size, so every
// instance sharing a Redis agrees on when a window resets.

func windowBounds(now time.Time, window time.Duration) (start, reset time.Time) {
	start = now.Truncate(window)
	return start, start.Add(window)
}

func resultFor(count int64, limit int, reset time.Time) RateLimitResult {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetAt:   reset,
	}
}

// MemoryRateLimitStore keeps counters in process memory. It suits a single
// instance or local development.
type MemoryRateLimitStore struct {
	now func() time.Time

	mu        sync.Mutex
	counters  map[string]memoryWindow
	lastSweep time.Time
}

type memoryWindow struct {
	reset time.Time
	count int64
}

// NewMemoryRateLimitStore returns an empty in-memory store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		now:      time.Now,
		counters: make(map[string]memoryWindow),
	}
}

// IncrementAndCheck implements RateLimitStore.
func (m *MemoryRateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := m.now()
	_, reset := windowBounds(now, window)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= window {
		for k, w := range m.counters {
			if !now.Before(w.reset) {
				delete(m.counters, k)
			}
		}
		m.lastSweep = now
	}

	w := m.counters[key]
	if w.reset != reset {
		w = memoryWindow{reset: reset}
	}
	w.count++
	m.counters[key] = w

	return resultFor(w.count, limit, reset), nil
}

// RedisRateLimitStore shares counters across instances through Redis.
// Each window is one key incremented and given a TTL inside MULTI/EXEC.
type RedisRateLimitStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRateLimitStore wraps an existing client. Keys are namespaced with
// prefix.
func NewRedisRateLimitStore(client redis.UniversalClient, prefix string) *RedisRateLimitStore {
	if prefix == "" {
		prefix = "verdant:ratelimit"
	}
	return &RedisRateLimitStore{client: client, prefix: prefix, now: time.Now}
}

// NewRedisRateLimitStoreFromURL dials Redis from a redis:// or rediss:// URL.
func NewRedisRateLimitStoreFromURL(rawURL, prefix string) (*RedisRateLimitStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisRateLimitStore(redis.NewClient(opts), prefix), nil
}

// IncrementAndCheck implements RateLimitStore.
func (s *RedisRateLimitStore) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	start, reset := windowBounds(s.now(), window)
	redisKey := fmt.Sprintf("%s:%s:%d", s.prefix, key, start.Unix())

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("incrementing %s: %w", redisKey, err)
	}

	return resultFor(incr.Val(), limit, reset), nil
}

// Name implements HealthProbe.
func (s *RedisRateLimitStore) Name() string { return "rate_limit_redis" }

// Check implements HealthProbe.
func (s *RedisRateLimitStore) Check(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (s *RedisRateLimitStore) Close() error {
	return s.client.Close()
}

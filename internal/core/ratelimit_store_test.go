package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryRateLimitStore_FixedWindow(t *testing.T) {
	now := time.Date(2024, 6, 9, 8, 0, 10, 0, time.UTC)
	store := NewMemoryRateLimitStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := store.IncrementAndCheck(ctx, "a", 3, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Allowed || res.Remaining != 3-i {
			t.Errorf("hit %d: got %+v", i, res)
		}
		if !res.ResetAt.Equal(time.Date(2024, 6, 9, 8, 1, 0, 0, time.UTC)) {
			t.Errorf("ResetAt: got %v", res.ResetAt)
		}
	}

	res, _ := store.IncrementAndCheck(ctx, "a", 3, time.Minute)
	if res.Allowed || res.Remaining != 0 {
		t.Errorf("fourth hit should be rejected, got %+v", res)
	}

	other, _ := store.IncrementAndCheck(ctx, "b", 3, time.Minute)
	if !other.Allowed || other.Remaining != 2 {
		t.Errorf("keys must be independent, got %+v", other)
	}

	now = now.Add(time.Minute)
	res, _ = store.IncrementAndCheck(ctx, "a", 3, time.Minute)
	if !res.Allowed || res.Remaining != 2 {
		t.Errorf("new window should reset the counter, got %+v", res)
	}
	if _, ok := store.counters["b"]; ok {
		t.Error("expired windows should be swept")
	}
}

func newMiniredisStore(t *testing.T) (*RedisRateLimitStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisRateLimitStore(client, "")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisRateLimitStore_CountsAndExpires(t *testing.T) {
	store, mr := newMiniredisStore(t)
	now := time.Date(2024, 6, 9, 8, 0, 10, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := store.IncrementAndCheck(ctx, "198.51.100.4", 2, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Allowed || res.Remaining != 2-i {
			t.Errorf("hit %d: got %+v", i, res)
		}
	}
	res, _ := store.IncrementAndCheck(ctx, "198.51.100.4", 2, time.Minute)
	if res.Allowed {
		t.Errorf("third hit should be rejected, got %+v", res)
	}

	key := "verdant:ratelimit:198.51.100.4:" + "1717920000"
	if got, err := mr.Get(key); err != nil || got != "3" {
		t.Errorf("counter %s: got %q, %v", key, got, err)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL should be set within the window, got %v", ttl)
	}

	mr.FastForward(time.Minute)
	if mr.Exists(key) {
		t.Error("counter should expire with the window")
	}
}

func TestRedisRateLimitStore_HealthAndErrors(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	if store.Name() != "rate_limit_redis" {
		t.Errorf("Name: got %q", store.Name())
	}
	if err := store.Check(ctx); err != nil {
		t.Errorf("Check should pass: %v", err)
	}

	mr.Close()
	if err := store.Check(ctx); err == nil {
		t.Error("Check should fail once redis is gone")
	}
	if _, err := store.IncrementAndCheck(ctx, "k", 1, time.Minute); err == nil {
		t.Error("IncrementAndCheck should surface redis errors")
	}
}

func TestNewRedisRateLimitStoreFromURL(t *testing.T) {
	if _, err := NewRedisRateLimitStoreFromURL("not a url", ""); err == nil {
		t.Error("expected parse error")
	}

	mr := miniredis.RunT(t)
	store, err := NewRedisRateLimitStoreFromURL("redis://"+mr.Addr()+"/0", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	if _, err := store.IncrementAndCheck(context.Background(), "k", 5, time.Second); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "test:k:") {
		t.Errorf("expected one prefixed key, got %v", keys)
	}
}

package core

import (
	"context"
	"time"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records latency and count for one request. endpoint is
	// the chi route pattern, not the raw path.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RateLimitStore abstracts the backing store for rate limiting.
// A single instance uses process memory; a fleet shares Redis.
type RateLimitStore interface {
	// IncrementAndCheck atomically increments the counter for key and reports
	// whether the limit has been exceeded within the current window.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the current window ends.
	ResetAt time.Time
}

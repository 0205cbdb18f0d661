package core

import (
	"context"
	"sync"
	"time"
)

// MockRateLimitStore implements RateLimitStore for tests. IncrementAndCheckFunc,
// when set, overrides Result and Err.
type MockRateLimitStore struct {
	Result                RateLimitResult
	Err                   error
	IncrementAndCheckFunc func(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)

	mu    sync.Mutex
	Calls []RateLimitCall
}

// RateLimitCall records the arguments of one IncrementAndCheck call.
type RateLimitCall struct {
	Key    string
	Limit  int
	Window time.Duration
}

// IncrementAndCheck implements RateLimitStore.
func (m *MockRateLimitStore) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RateLimitCall{Key: key, Limit: limit, Window: window})
	m.mu.Unlock()

	if m.IncrementAndCheckFunc != nil {
		return m.IncrementAndCheckFunc(ctx, key, limit, window)
	}
	return m.Result, m.Err
}

// MockMetricsCollector records every RecordRequest call.
type MockMetricsCollector struct {
	mu    sync.Mutex
	Calls []MetricsCall
}

// MetricsCall is one recorded request metric.
type MetricsCall struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

// RecordRequest implements MetricsCollector.
func (m *MockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MetricsCall{Method: method, Endpoint: endpoint, Status: status, Duration: duration})
}

// Recorded returns a copy of the calls so far.
func (m *MockMetricsCollector) Recorded() []MetricsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MetricsCall(nil), m.Calls...)
}

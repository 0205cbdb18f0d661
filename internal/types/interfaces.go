package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// RandSource yields uniform floats in [0, 1). Generators take one so tests can
// substitute a fixed sequence for system entropy.
type RandSource interface {
	Float64() float64
}

// ReadingPublisher forwards readings to an outbound sink. Publishing is best
// effort: callers log failures and carry on.
type ReadingPublisher interface {
	Publish(ctx context.Context, msg ReadingMessage) error
	Close() error
}

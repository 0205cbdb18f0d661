package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"verdant/internal/types"
)

// Breaker guards a Sink with a circuit breaker.
type Breaker struct {
	sink   Sink
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *slog.Logger
}

// NewBreaker wraps sink. The circuit opens after failures consecutive errors
// and half-opens after cooldown. Non-positive values use 5 and 30s.
func NewBreaker(sink Sink, failures int, cooldown time.Duration, logger *slog.Logger) *Breaker {
	if failures <= 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	b := &Breaker{sink: sink, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "sink-" + sink.Name(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("sink breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return b
}

// Publish forwards msg unless the circuit is open.
func (b *Breaker) Publish(ctx context.Context, msg types.ReadingMessage) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.sink.Publish(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrSinkOpen, b.sink.Name())
	}
	return err
}

// Close closes the wrapped sink.
func (b *Breaker) Close() error { return b.sink.Close() }

// Name returns the wrapped sink's name.
func (b *Breaker) Name() string { return b.sink.Name() }

// State returns the breaker state as a string (closed, half-open, open).
func (b *Breaker) State() string { return b.cb.State().String() }

// Check fails while the circuit is open, then defers to the sink's own probe.
func (b *Breaker) Check(ctx context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: %s", ErrSinkOpen, b.sink.Name())
	}
	if c, ok := b.sink.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// Package publish forwards readings received on the write endpoint to an
// outbound sink. Every sink is wrapped in a circuit breaker so a dead broker
// costs one fast failure per request instead of a timeout.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verdant/internal/types"
)

// Kind selects the sink implementation.
type Kind string

const (
	KindNone  Kind = "none"
	KindLog   Kind = "log"
	KindKafka Kind = "kafka"
	KindMQTT  Kind = "mqtt"
	KindSQS   Kind = "sqs"
)

// ErrSinkOpen is returned while the breaker in front of a sink is open.
var ErrSinkOpen = errors.New("publish: sink circuit open")

// Sink is a named ReadingPublisher that can report its own health.
type Sink interface {
	types.ReadingPublisher
	Name() string
}

// Checker is implemented by sinks that can probe their connection.
type Checker interface {
	Check(ctx context.Context) error
}

// Config selects and configures a sink.
type Config struct {
	Kind    Kind
	Timeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTQoS      byte

	SQSQueueURL string

	BreakerFailures int
	BreakerCooldown time.Duration
}

// NewMessage wraps a payload for publishing.
func NewMessage(payload map[string]any, source string, now time.Time) types.ReadingMessage {
	return types.ReadingMessage{
		ID:         uuid.New().String(),
		ReceivedAt: now.UTC(),
		Source:     source,
		Payload:    payload,
	}
}

func encode(msg types.ReadingMessage) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("publish: marshal message %s: %w", msg.ID, err)
	}
	return b, nil
}

// New builds the sink named by cfg.Kind wrapped in a breaker. sqsClient is
// only consulted for KindSQS and may be nil otherwise.
func New(ctx context.Context, cfg Config, sqsClient SQSSender, logger *slog.Logger) (Sink, error) {
	var (
		sink Sink
		err  error
	)

	switch cfg.Kind {
	case "", KindNone:
		return Noop{}, nil
	case KindLog:
		sink = NewLogSink(logger)
	case KindKafka:
		sink, err = NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	case KindMQTT:
		sink, err = DialMQTT(ctx, cfg.MQTTBroker, cfg.MQTTTopic, cfg.MQTTClientID, cfg.MQTTQoS, cfg.Timeout)
	case KindSQS:
		if sqsClient == nil {
			return nil, errors.New("publish: sqs sink requires a client")
		}
		sink, err = NewSQSSink(sqsClient, cfg.SQSQueueURL)
	default:
		return nil, fmt.Errorf("publish: unknown sink kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("reading sink configured", "sink", sink.Name())
	return NewBreaker(sink, cfg.BreakerFailures, cfg.BreakerCooldown, logger), nil
}

// Noop discards every message.
type Noop struct{}

func (Noop) Publish(context.Context, types.ReadingMessage) error { return nil }
func (Noop) Close() error                                        { return nil }
func (Noop) Name() string                                        { return string(KindNone) }

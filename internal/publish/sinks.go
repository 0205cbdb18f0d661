package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"verdant/internal/types"
)

// LogSink writes each message to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, msg types.ReadingMessage) error {
	s.logger.InfoContext(ctx, "reading received",
		"message_id", msg.ID,
		"source", msg.Source,
		"fields", len(msg.Payload),
		"payload", msg.Payload,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
func (s *LogSink) Name() string { return string(KindLog) }

// KafkaWriter is the subset of *kafka.Writer the sink needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes messages to one topic, keyed by message id.
type KafkaSink struct {
	writer KafkaWriter
	topic  string
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("publish: kafka sink requires at least one broker")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("publish: kafka sink requires a topic")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaSinkWithWriter(w, topic), nil
}

// NewKafkaSinkWithWriter creates a sink over an existing writer.
func NewKafkaSinkWithWriter(w KafkaWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: w, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, msg types.ReadingMessage) error {
	b, err := encode(msg)
	if err != nil {
		return err
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ID),
		Value: b,
		Time:  msg.ReceivedAt,
	})
	if err != nil {
		return fmt.Errorf("publish: kafka write to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.writer.Close() }
func (s *KafkaSink) Name() string { return string(KindKafka) }

// MQTTSink publishes each message to a single topic.
type MQTTSink struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
}

// DialMQTT connects to broker and returns a sink publishing to topic.
func DialMQTT(ctx context.Context, broker, topic, clientID string, qos byte, timeout time.Duration) (*MQTTSink, error) {
	if broker == "" || topic == "" {
		return nil, errors.New("publish: mqtt sink requires a broker and a topic")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	c := mqtt.NewClient(opts)

	tok := c.Connect()
	if !waitToken(ctx, tok, timeout) {
		return nil, fmt.Errorf("publish: mqtt connect to %s timed out", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("publish: mqtt connect to %s: %w", broker, err)
	}
	return NewMQTTSinkWithClient(c, topic, qos, timeout), nil
}

// NewMQTTSinkWithClient creates a sink over an existing client.
func NewMQTTSinkWithClient(c mqtt.Client, topic string, qos byte, timeout time.Duration) *MQTTSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTSink{client: c, topic: topic, qos: qos, timeout: timeout}
}

func (s *MQTTSink) Publish(ctx context.Context, msg types.ReadingMessage) error {
	b, err := encode(msg)
	if err != nil {
		return err
	}
	tok := s.client.Publish(s.topic, s.qos, false, b)
	if !waitToken(ctx, tok, s.timeout) {
		return fmt.Errorf("publish: mqtt publish to %s timed out", s.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish: mqtt publish to %s: %w", s.topic, err)
	}
	return nil
}

// Check reports whether the client currently holds a broker connection.
func (s *MQTTSink) Check(context.Context) error {
	if !s.client.IsConnectionOpen() {
		return errors.New("publish: mqtt connection not open")
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

func (s *MQTTSink) Name() string { return string(KindMQTT) }

// waitToken blocks until tok completes, ctx ends, or timeout passes.
func waitToken(ctx context.Context, tok mqtt.Token, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink sends each message to one queue.
type SQSSink struct {
	client   SQSSender
	queueURL string
}

func NewSQSSink(client SQSSender, queueURL string) (*SQSSink, error) {
	if queueURL == "" {
		return nil, errors.New("publish: sqs sink requires a queue url")
	}
	return &SQSSink{client: client, queueURL: queueURL}, nil
}

func (s *SQSSink) Publish(ctx context.Context, msg types.ReadingMessage) error {
	b, err := encode(msg)
	if err != nil {
		return err
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(b)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"source": {DataType: aws.String("String"), StringValue: aws.String(msg.Source)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish: sqs send to %s: %w", s.queueURL, err)
	}
	return nil
}

func (s *SQSSink) Close() error { return nil }
func (s *SQSSink) Name() string { return string(KindSQS) }

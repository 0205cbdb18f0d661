// Package config defines the runtime configuration of the verdant services.
// Configuration is read once at startup and is immutable afterwards.
//
// Values are resolved in priority order:
//
//	OS environment (highest) -> .env file -> AWS SSM Parameter Store (lowest)
//
// A missing required value or a malformed one fails startup.
package config

import (
	"time"

	"verdant/internal/types"
)

// SecretString is re-exported so callers configuring secrets need not import
// types directly.
type SecretString = types.SecretString

// Config is the top-level configuration. Components receive only the section
// they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"verdant-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Simulation    SimulationConfig
	Narrative     NarrativeConfig
	Sink          SinkConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	AWS           AWSConfig

	// Injected via ldflags, not the environment.
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxBodyBytes       int64         `envconfig:"MAX_BODY_BYTES" default:"1048576" validate:"gt=0"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	Compression        bool          `envconfig:"COMPRESSION_ENABLED" default:"true"`
}

// SimulationConfig tunes the observation generator and the session store.
type SimulationConfig struct {
	// Seed fixes the noise source when non-zero.
	Seed             uint64        `envconfig:"SIM_SEED" default:"0"`
	StrictDates      bool          `envconfig:"SIM_STRICT_DATES" default:"false"`
	MaxSessions      int           `envconfig:"SIM_MAX_SESSIONS" default:"1000" validate:"min=1"`
	SessionRetention time.Duration `envconfig:"SIM_SESSION_RETENTION" default:"15m" validate:"gt=0"`
}

// NarrativeConfig holds the pacing of every staged narrative.
type NarrativeConfig struct {
	DialoguePhase     time.Duration `envconfig:"NARRATIVE_DIALOGUE_PHASE" default:"600ms" validate:"gte=0"`
	DebateTurn        time.Duration `envconfig:"NARRATIVE_DEBATE_TURN" default:"800ms" validate:"gte=0"`
	MetaStep          time.Duration `envconfig:"NARRATIVE_META_STEP" default:"800ms" validate:"gte=0"`
	ConversationPhase time.Duration `envconfig:"NARRATIVE_CONVERSATION_PHASE" default:"1s" validate:"gte=0"`
	ReplyDelay        time.Duration `envconfig:"NARRATIVE_REPLY_DELAY" default:"2s" validate:"gte=0"`
	Typewriter        time.Duration `envconfig:"NARRATIVE_TYPEWRITER" default:"20ms" validate:"gte=0"`
}

// SinkConfig selects where POSTed readings are forwarded.
type SinkConfig struct {
	Kind    string        `envconfig:"SINK_KIND" default:"none" validate:"oneof=none log kafka mqtt sqs"`
	Timeout time.Duration `envconfig:"SINK_TIMEOUT" default:"5s" validate:"gt=0"`

	KafkaBrokers []string `envconfig:"SINK_KAFKA_BROKERS" validate:"required_if=Kind kafka"`
	KafkaTopic   string   `envconfig:"SINK_KAFKA_TOPIC" default:"verdant.readings"`

	MQTTBroker   string `envconfig:"SINK_MQTT_BROKER" validate:"required_if=Kind mqtt"`
	MQTTTopic    string `envconfig:"SINK_MQTT_TOPIC" default:"verdant/readings"`
	MQTTClientID string `envconfig:"SINK_MQTT_CLIENT_ID" default:"verdant-api"`
	MQTTQoS      uint8  `envconfig:"SINK_MQTT_QOS" default:"1" validate:"max=2"`

	SQSQueueURL string `envconfig:"SINK_SQS_QUEUE_URL" validate:"required_if=Kind sqs"`

	BreakerFailures int           `envconfig:"SINK_BREAKER_FAILURES" default:"5" validate:"min=1"`
	BreakerCooldown time.Duration `envconfig:"SINK_BREAKER_COOLDOWN" default:"30s" validate:"gt=0"`
}

// RateLimitConfig controls the per-client request limiter.
type RateLimitConfig struct {
	Enabled bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Limit   int           `envconfig:"RATE_LIMIT_REQUESTS" default:"120" validate:"min=1"`
	Window  time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m" validate:"gt=0"`
	// RedisURL switches the counters from process memory to Redis.
	RedisURL SecretString `envconfig:"RATE_LIMIT_REDIS_URL"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Verdant"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// AWSConfig holds region and endpoint overrides shared by every AWS client.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// LocalStack support; empty in production.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BuildInfo holds build-time metadata.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// ConfigErrorType categorizes configuration failures.
type ConfigErrorType string

const (
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)

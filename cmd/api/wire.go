package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"verdant/internal/api/handlers"
	"verdant/internal/config"
	"verdant/internal/core"
	"verdant/internal/narrative"
	"verdant/internal/observation"
	"verdant/internal/publish"
	"verdant/internal/sequencer"
	"verdant/internal/session"
)

// awsClients holds the AWS service clients the API may use.
type awsClients struct {
	SQS        publish.SQSSender
	CloudWatch core.CloudWatchClient
}

// awsLoader builds AWS clients on demand so deployments that use neither SQS
// nor CloudWatch never touch the SDK credential chain.
type awsLoader func(ctx context.Context, cfg config.AWSConfig) (awsClients, error)

func loadAWSClients(ctx context.Context, cfg config.AWSConfig) (awsClients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return awsClients{}, fmt.Errorf("loading AWS config: %w", err)
	}

	endpoint := cfg.EndpointURL
	return awsClients{
		SQS: sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		CloudWatch: cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
	}, nil
}

// closerFunc adapts a func() to io.Closer.
type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// buildServer wires every dependency into a mounted core.Server.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, loadAWS awsLoader) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	var clients awsClients
	if cfg.Observability.EnableMetrics || publish.Kind(cfg.Sink.Kind) == publish.KindSQS {
		if clients, err = loadAWS(ctx, cfg.AWS); err != nil {
			return nil, err
		}
	}

	// Metrics. Interface values stay nil when disabled so handlers can test
	// for presence.
	var (
		scoreRecorder handlers.ScoreRecorder
		sinkRecorder  handlers.SinkRecorder
	)
	if cfg.Observability.EnableMetrics {
		cw := core.NewCloudWatchMetrics(clients.CloudWatch, cfg.Observability.MetricNamespace, logger)
		srv.Metrics = cw
		scoreRecorder = cw
		sinkRecorder = cw
	}

	// Rate limiting.
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RedisURL.IsSet() {
			store, err := core.NewRedisRateLimitStoreFromURL(cfg.RateLimit.RedisURL.Reveal(), "")
			if err != nil {
				return nil, fmt.Errorf("creating rate limit store: %w", err)
			}
			srv.RateLimitStore = store
			srv.HealthProbes = append(srv.HealthProbes, store)
			srv.Closers = append(srv.Closers, store)
		} else {
			srv.RateLimitStore = core.NewMemoryRateLimitStore()
		}
	}

	// Reading sink.
	sink, err := publish.New(ctx, publish.Config{
		Kind:            publish.Kind(cfg.Sink.Kind),
		Timeout:         cfg.Sink.Timeout,
		KafkaBrokers:    cfg.Sink.KafkaBrokers,
		KafkaTopic:      cfg.Sink.KafkaTopic,
		MQTTBroker:      cfg.Sink.MQTTBroker,
		MQTTTopic:       cfg.Sink.MQTTTopic,
		MQTTClientID:    cfg.Sink.MQTTClientID,
		MQTTQoS:         cfg.Sink.MQTTQoS,
		SQSQueueURL:     cfg.Sink.SQSQueueURL,
		BreakerFailures: cfg.Sink.BreakerFailures,
		BreakerCooldown: cfg.Sink.BreakerCooldown,
	}, clients.SQS, logger)
	if err != nil {
		return nil, fmt.Errorf("creating reading sink: %w", err)
	}
	srv.Closers = append(srv.Closers, sink)
	if checker, ok := sink.(publish.Checker); ok {
		srv.HealthProbes = append(srv.HealthProbes, core.NewProbe("sink_"+sink.Name(), checker.Check))
	}

	// Simulation.
	src := observation.SourceFor(cfg.Simulation.Seed)
	gen := observation.NewGenerator(src)

	n := cfg.Narrative
	sessions := session.NewStore(sequencer.RealClock(), src, session.Options{
		MaxSessions: cfg.Simulation.MaxSessions,
		Retention:   cfg.Simulation.SessionRetention,
		StrictDates: cfg.Simulation.StrictDates,
		Timings: narrative.Timings{
			DialoguePhase:     n.DialoguePhase,
			DebateTurn:        n.DebateTurn,
			MetaStep:          n.MetaStep,
			ConversationPhase: n.ConversationPhase,
			ReplyDelay:        n.ReplyDelay,
			Typewriter:        n.Typewriter,
		},
	}, logger)
	srv.Closers = append(srv.Closers, closerFunc(sessions.Close))

	// Handlers.
	plantOpts := []handlers.PlantDataOption{}
	if _, isNoop := sink.(publish.Noop); !isNoop {
		plantOpts = append(plantOpts, handlers.WithPublisher(sink, cfg.Sink.Timeout))
	}
	if sinkRecorder != nil {
		plantOpts = append(plantOpts, handlers.WithSinkMetrics(sinkRecorder))
	}
	plantHandler := handlers.NewPlantDataHandler(gen, logger, plantOpts...)
	observationHandler := handlers.NewObservationHandler(gen, srv.Validator, scoreRecorder, cfg.Simulation.StrictDates, logger)
	sessionHandler := handlers.NewSessionHandler(sessions, srv.Validator, logger)

	srv.RouteRegistrars = append(srv.RouteRegistrars, plantHandler.RegisterRoutes)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		observationHandler.RegisterRoutes,
		sessionHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

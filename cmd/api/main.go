// Package main is the entry point for the verdant API server.
//
// It loads configuration, wires the simulation, the session store and the
// optional reading sink into the core chassis, and serves HTTP.
//
// Locally (and in containers) it runs a standard HTTP server on the configured
// port. Inside AWS Lambda it hands API Gateway v2 events to the same router.
//
// Graceful shutdown is driven by SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"golang.org/x/sync/errgroup"

	"verdant/internal/config"
	"verdant/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup in main still runs.
func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("verdant API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"sink", cfg.Sink.Kind,
	)

	srv, err := buildServer(ctx, cfg, logger, loadAWSClients)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		return runLambda(srv, logger)
	}
	return runHTTPServer(ctx, srv, cfg, logger)
}

// secretProvider picks how FOO_SSM_PARAM references resolve: not at all
// locally, from other environment variables when SECRET_PROVIDER=env (CI and
// compose stacks), from SSM otherwise. It reads the environment directly
// because config is not loaded yet.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return nil
	}
	if os.Getenv("SECRET_PROVIDER") == "env" {
		return config.NewEnvVarProvider()
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return config.NewSSMProvider(region, os.Getenv("AWS_ENDPOINT_URL"))
}

// isLambdaEnvironment reports whether the Lambda runtime started us.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runLambda serves API Gateway HTTP API events. lambda.Start never returns
// under the runtime.
func runLambda(srv *core.Server, logger *slog.Logger) error {
	logger.Info("starting in Lambda mode")
	lambda.Start(core.NewLambdaHandler(srv.Handler()).Handle)
	return nil
}

// runHTTPServer serves until ctx ends, then drains in-flight requests and
// closes server resources within Server.ShutdownTimeout.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer, srv, cfg.Server.ShutdownTimeout, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// shutdown stops accepting requests first, then closes sessions, sinks and
// stores. Both steps share one deadline.
func shutdown(httpServer *http.Server, srv *core.Server, timeout time.Duration, logger *slog.Logger) error {
	logger.Info("shutting down", "timeout", timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("closing server resources failed", "error", err)
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// newLogger returns the JSON logger on stdout. Unknown levels mean info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

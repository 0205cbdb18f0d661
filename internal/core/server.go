// Package core provides the HTTP chassis for the verdant API.
// It builds a chi router that serves both plain HTTP (local and container
// deployments) and API Gateway v2 events under AWS Lambda. Cross-cutting
// concerns run as middleware before requests reach domain handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verdant/internal/config"
)

// Server holds the dependencies shared by every route.
type Server struct {
	Config         *config.Config
	Logger         *slog.Logger
	Validator      *Validator
	Metrics        MetricsCollector
	RateLimitStore RateLimitStore
	HealthProbes   []HealthProbe

	// RouteRegistrars mount routes at the root, outside /v1. The dashboard
	// routes live here because their wire shape predates the envelope.
	RouteRegistrars []func(chi.Router)
	// V1RouteRegistrars are populated by the entry point so that core does
	// not import handler packages.
	V1RouteRegistrars []func(chi.Router)

	// Closers run on Shutdown in registration order.
	Closers []io.Closer

	router *chi.Mux
}

// NewServer validates the critical dependencies and prepares an empty router.
// The caller mounts routes with MountRoutes once registrars are attached.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server resources. Every closer runs even if an earlier
// one fails; the joined error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	var errs []error
	for _, c := range s.Closers {
		if err := c.Close(); err != nil {
			s.Logger.ErrorContext(ctx, "error closing server resource", "error", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing server resources: %w", err)
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}

package core

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"

	"verdant/internal/types"
)

const (
	// Applies when Server.RequestTimeout is unset; under the API Gateway cap.
	defaultRequestTimeout = 29 * time.Second
	compressMinSize       = 512
)

// Masked in request logs.
var defaultRedactedHeaders = []string{"Authorization", "Cookie", "X-Api-Key"}

// MountRoutes installs the middleware chain, the /v1 group, root-level
// routes and GET /health.
func (s *Server) MountRoutes() {
	s.router.Use(s.middlewareChain()...)

	s.router.Route("/v1", func(r chi.Router) {
		for _, register := range s.V1RouteRegistrars {
			register(r)
		}
	})
	for _, register := range s.RouteRegistrars {
		register(s.router)
	}
	s.router.Get("/health", s.HandleHealth)
}

// middlewareChain lists the global middleware outermost first. The recoverer
// wraps everything; the rate limiter runs last so it sees the client IP and
// is counted in metrics.
func (s *Server) middlewareChain() []func(http.Handler) http.Handler {
	timeout := s.Config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	origins := s.Config.Server.CorsAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	chain := []func(http.Handler) http.Handler{
		s.Recoverer,
		ContextTimeoutMiddleware(timeout),
		RequestIDMiddleware,
		ClientIPMiddleware,
		s.SecurityHeadersMiddleware,
		RequestLogger(s.Logger, defaultRedactedHeaders),
		NewCORSMiddleware(origins),
	}
	if s.Config.Server.Compression {
		chain = append(chain, s.compressionMiddleware())
	}
	return append(chain,
		BodyLimitMiddleware(s.Config.Server.MaxBodyBytes),
		s.MetricsMiddleware,
		s.RateLimit,
	)
}

// compressionMiddleware gzips responses of at least compressMinSize bytes.
// gzhttp only fails on bad options; that case logs and serves uncompressed.
func (s *Server) compressionMiddleware() func(http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressMinSize))
	if err != nil {
		s.Logger.Error("compression disabled", "error", err)
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler { return wrap(next) }
}

// ContextTimeoutMiddleware sets a deadline on the request context.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses an incoming X-Request-Id or generates one, stores
// it in the context and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID returns a random UUID without dashes.
func generateRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ClientIPMiddleware stores the caller's address in the context.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := types.WithClientIP(r.Context(), extractClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractClientIP prefers the first X-Forwarded-For entry and falls back to
// RemoteAddr without its port.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// BodyLimitMiddleware caps request bodies at limit bytes. Non-positive limits
// disable the cap.
func BodyLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

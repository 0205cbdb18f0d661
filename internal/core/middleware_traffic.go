package core

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"verdant/internal/types"
)

// Fallbacks for a zero RateLimit config section.
const (
	defaultRateLimitWindow = time.Minute
	defaultRateLimitMax    = 120
)

// RateLimit enforces a per-client-IP request budget using RateLimitStore.
//
// A nil store or a disabled config passes every request through, and so does
// GET /health so that load balancers are never throttled. Store errors fail
// open.
//
// Every limited response carries X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset. Rejections add Retry-After.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	limit, window := s.rateLimitParams()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RateLimitStore == nil || !s.Config.RateLimit.Enabled || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		key := types.GetClientIP(r.Context())
		if key == "" {
			key = extractClientIP(r)
		}

		result, err := s.RateLimitStore.IncrementAndCheck(r.Context(), key, limit, window)
		if err != nil {
			s.Logger.Error("rate limit store error",
				slog.String("client_ip", key),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, limit, result)

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("client_ip", key),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			Error(w, r, types.NewAppError(types.ErrCodeRateLimit,
				"Rate limit exceeded. Please retry after the reset time.", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitParams() (int, time.Duration) {
	limit, window := s.Config.RateLimit.Limit, s.Config.RateLimit.Window
	if limit <= 0 {
		limit = defaultRateLimitMax
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return limit, window
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, result RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

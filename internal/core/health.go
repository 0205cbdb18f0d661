package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the whole probe run.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one dependency (the reading sink, the Redis limiter).
type HealthProbe interface {
	Name() string
	// Check must respect the context deadline.
	Check(ctx context.Context) error
}

// probeFunc adapts a function to HealthProbe.
type probeFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (p probeFunc) Name() string                    { return p.name }
func (p probeFunc) Check(ctx context.Context) error { return p.fn(ctx) }

// NewProbe returns a HealthProbe named name that runs fn.
func NewProbe(name string, fn func(ctx context.Context) error) HealthProbe {
	return probeFunc{name: name, fn: fn}
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently under one deadline and answers
// 200 when all pass, 503 otherwise. A probe that panics or outlives the
// deadline counts as a failure.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy", Version: s.Config.Build.Version}
	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	// Buffered so late probes never block after the deadline.
	results := make(chan probeOutcome, len(s.HealthProbes))
	for i, p := range s.HealthProbes {
		go func() { results <- probeOutcome{index: i, err: runProbe(ctx, p)} }()
	}

	errs := make([]error, len(s.HealthProbes))
	finished := make([]bool, len(s.HealthProbes))
collect:
	for range s.HealthProbes {
		select {
		case o := <-results:
			errs[o.index], finished[o.index] = o.err, true
		case <-ctx.Done():
			break collect
		}
	}

	resp.Components = make(map[string]componentStatus, len(s.HealthProbes))
	for i, p := range s.HealthProbes {
		st := componentStatus{Status: "healthy"}
		switch {
		case !finished[i]:
			st = componentStatus{Status: "unhealthy", Message: "health check timed out"}
		case errs[i] != nil:
			st = componentStatus{Status: "unhealthy", Message: errs[i].Error()}
		}
		if st.Status != "healthy" {
			resp.Status = "unhealthy"
		}
		resp.Components[p.Name()] = st
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, resp)
}

type probeOutcome struct {
	index int
	err   error
}

func runProbe(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("probe panicked: %v", rvr)
		}
	}()
	return p.Check(ctx)
}

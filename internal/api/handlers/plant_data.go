// Package handlers contains the HTTP handlers of the verdant API.
//
// The dashboard routes (/plant-data) keep their original bare JSON shape.
// Everything under /v1 uses the core envelope.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verdant/internal/publish"
	"verdant/internal/types"
)

// Static messages returned by the dashboard routes.
const (
	msgFetchFailed  = "failed to fetch plant data"
	msgCreateFailed = "failed to create plant data"
)

// isoMillis matches the millisecond ISO-8601 form browsers produce.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// SnapshotSource produces the live dashboard reading.
type SnapshotSource interface {
	Snapshot(now time.Time) types.PlantData
}

// SinkRecorder records the outcome of forwarding a reading.
type SinkRecorder interface {
	RecordSinkPublish(ctx context.Context, sink, result string)
}

// PlantDataHandler serves GET and POST /plant-data.
type PlantDataHandler struct {
	source         SnapshotSource
	publisher      publish.Sink
	publishTimeout time.Duration
	metrics        SinkRecorder
	clock          types.Clock
	logger         *slog.Logger
}

// PlantDataOption customizes a PlantDataHandler.
type PlantDataOption func(*PlantDataHandler)

// WithPublisher forwards every accepted POST body to sink. timeout bounds
// each publish.
func WithPublisher(sink publish.Sink, timeout time.Duration) PlantDataOption {
	return func(h *PlantDataHandler) {
		h.publisher = sink
		h.publishTimeout = timeout
	}
}

// WithSinkMetrics records publish outcomes.
func WithSinkMetrics(m SinkRecorder) PlantDataOption {
	return func(h *PlantDataHandler) { h.metrics = m }
}

// WithClock overrides the wall clock used for ids and timestamps.
func WithClock(c types.Clock) PlantDataOption {
	return func(h *PlantDataHandler) { h.clock = c }
}

// NewPlantDataHandler creates a PlantDataHandler.
func NewPlantDataHandler(source SnapshotSource, logger *slog.Logger, opts ...PlantDataOption) *PlantDataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &PlantDataHandler{
		source:         source,
		clock:          types.RealClock{},
		logger:         logger,
		publishTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the dashboard routes at the root.
func (h *PlantDataHandler) RegisterRoutes(r chi.Router) {
	r.Get("/plant-data", h.HandleGet)
	r.Post("/plant-data", h.HandleCreate)
}

// HandleGet handles GET /plant-data. The body is a one-element array.
func (h *PlantDataHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal([]types.PlantData{h.source.Snapshot(h.clock.Now())})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "encoding plant data", "error", err)
		writeBareError(w, msgFetchFailed)
		return
	}
	writeBare(w, http.StatusOK, body)
}

// HandleCreate handles POST /plant-data. Any JSON object is accepted and
// echoed back laid over a generated id and timestamp; keys from the body win.
// Nothing is stored. When a sink is configured the body is forwarded best
// effort.
func (h *PlantDataHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "rejecting plant data body", "error", err)
		writeBareError(w, msgCreateFailed)
		return
	}

	now := h.clock.Now().UTC()
	saved := make(map[string]any, len(payload)+2)
	saved["id"] = now.UnixMilli()
	saved["timestamp"] = now.Format(isoMillis)
	for k, v := range payload {
		saved[k] = v
	}

	body, err := json.Marshal(saved)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "encoding plant data echo", "error", err)
		writeBareError(w, msgCreateFailed)
		return
	}

	h.forward(r.Context(), payload, now)
	writeBare(w, http.StatusOK, body)
}

// forward hands the raw body to the sink. Failures are logged and counted
// but never change the response.
func (h *PlantDataHandler) forward(ctx context.Context, payload map[string]any, now time.Time) {
	if h.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)
	defer cancel()

	msg := publish.NewMessage(payload, "plant-data", now)
	result := "success"
	if err := h.publisher.Publish(ctx, msg); err != nil {
		result = "failure"
		if errors.Is(err, publish.ErrSinkOpen) {
			result = "dropped"
		}
		h.logger.WarnContext(ctx, "reading not forwarded",
			"sink", h.publisher.Name(),
			"message_id", msg.ID,
			"result", result,
			"error", err,
		)
	}
	if h.metrics != nil {
		h.metrics.RecordSinkPublish(ctx, h.publisher.Name(), result)
	}
}

var errNotObject = errors.New("body is not a JSON object")

// decodeObject reads a single JSON object, keeping numbers in their literal
// form so large ids survive the round trip.
func decodeObject(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errNotObject
	}
	// More misses a stray closer such as `{}}`; Token reports it as an error.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("body contains trailing data")
	}
	return payload, nil
}

func writeBare(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeBareError(w http.ResponseWriter, msg string) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	writeBare(w, http.StatusInternalServerError, body)
}

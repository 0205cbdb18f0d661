package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"verdant/internal/core"
	"verdant/internal/health"
	"verdant/internal/observation"
	"verdant/internal/types"
)

// ObservationGenerator is the slice of observation.Generator the handler uses.
type ObservationGenerator interface {
	Observe(date string) observation.Sample
	Timeline() []observation.Sample
	ReadingAt(index int) types.Reading
}

// ScoreRecorder records the score of every assessment served.
type ScoreRecorder interface {
	RecordHealthScore(ctx context.Context, mood string, score int)
}

// ObservationHandler serves the observation timeline and health scoring.
type ObservationHandler struct {
	gen         ObservationGenerator
	validator   *core.Validator
	metrics     ScoreRecorder
	strictDates bool
	logger      *slog.Logger
}

// NewObservationHandler creates an ObservationHandler. strictDates is the
// default for requests that do not pass ?strict. metrics may be nil.
func NewObservationHandler(gen ObservationGenerator, v *core.Validator, metrics ScoreRecorder, strictDates bool, logger *slog.Logger) *ObservationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObservationHandler{
		gen:         gen,
		validator:   v,
		metrics:     metrics,
		strictDates: strictDates,
		logger:      logger,
	}
}

// RegisterRoutes mounts the handler under /v1.
func (h *ObservationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/observations", h.List)
	r.Get("/observations/{date}", h.Get)
	r.Post("/health/assess", h.Assess)
}

// ObservationView is one observation with its reading and assessment.
type ObservationView struct {
	types.Observation
	Reading    types.Reading     `json:"reading"`
	Assessment health.Assessment `json:"assessment"`
}

func (h *ObservationHandler) view(s observation.Sample) ObservationView {
	return ObservationView{
		Observation: s.Observation,
		Reading:     s.Reading,
		Assessment:  health.Assess(s.Reading),
	}
}

// List handles GET /v1/observations.
func (h *ObservationHandler) List(w http.ResponseWriter, r *http.Request) {
	samples := h.gen.Timeline()
	out := make([]ObservationView, 0, len(samples))
	for _, s := range samples {
		out = append(out, h.view(s))
	}
	core.Data(w, r, http.StatusOK, out)
}

// Get handles GET /v1/observations/{date}.
func (h *ObservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	strict := h.strictDates
	if raw := r.URL.Query().Get("strict"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidFields,
				"strict must be a boolean", err).WithDetails(map[string]any{"field": "strict"}))
			return
		}
		strict = v
	}

	var sample observation.Sample
	if strict {
		obs, err := observation.Lookup(date)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundObservation,
				"no observation recorded for "+date, err))
			return
		}
		sample = observation.Sample{Observation: obs, Reading: h.gen.ReadingAt(obs.Index)}
	} else {
		sample = h.gen.Observe(date)
	}

	core.Data(w, r, http.StatusOK, h.view(sample))
}

// AssessRequest is a caller-supplied reading. The five scored metrics are
// required; air quality is optional and only displayed.
type AssessRequest struct {
	Temperature    *float64 `json:"temperature" validate:"required,finite"`
	Humidity       *float64 `json:"humidity" validate:"required,finite"`
	LightIntensity *float64 `json:"lightIntensity" validate:"required,finite"`
	SoilMoisture   *float64 `json:"soilMoisture" validate:"required,finite"`
	SoilPh         *float64 `json:"soilPh" validate:"required,finite"`
	AirQuality     *float64 `json:"airQuality" validate:"omitempty,finite"`
}

func (req AssessRequest) reading() types.Reading {
	rd := types.Reading{
		Temperature:    *req.Temperature,
		Humidity:       *req.Humidity,
		LightIntensity: *req.LightIntensity,
		SoilMoisture:   *req.SoilMoisture,
		SoilPh:         *req.SoilPh,
	}
	if req.AirQuality != nil {
		rd.AirQuality = *req.AirQuality
	}
	return rd
}

// Assess handles POST /v1/health/assess.
func (h *ObservationHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	a := health.Assess(req.reading())
	if h.metrics != nil {
		h.metrics.RecordHealthScore(r.Context(), string(a.Mood), int(a.Score))
	}
	core.Data(w, r, http.StatusOK, a)
}

// isUnknownDate reports whether err came from a strict catalog lookup.
func isUnknownDate(err error) bool {
	return errors.Is(err, observation.ErrUnknownDate)
}

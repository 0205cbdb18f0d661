package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verdant/internal/core"
	"verdant/internal/narrative"
	"verdant/internal/session"
	"verdant/internal/types"
)

// SessionService defines the narrative session operations the handler needs.
type SessionService interface {
	Create(ctx context.Context, req session.CreateRequest) (session.Snapshot, error)
	Get(id string) (session.Snapshot, error)
	Cancel(ctx context.Context, id string) error
	Say(ctx context.Context, id, message string) (session.Snapshot, error)
	List() []session.Snapshot
}

// SessionHandler serves the paced narrative sessions.
type SessionHandler struct {
	service   SessionService
	validator *core.Validator
	logger    *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(service SessionService, v *core.Validator, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{service: service, validator: v, logger: logger}
}

// RegisterRoutes mounts the session routes and the agent catalog under /v1.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/agents", h.ListAgents)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Cancel)
		r.Post("/{id}/messages", h.Say)
	})
}

// CreateSessionRequest starts a narrative. Agents only applies to debates:
// omitted means every agent, an empty list is rejected.
type CreateSessionRequest struct {
	Kind   string   `json:"kind" validate:"required"`
	Date   string   `json:"date" validate:"omitempty,max=40"`
	Agents []string `json:"agents" validate:"omitempty,max=8,dive,required"`
}

// SayRequest is one human message in a conversation.
type SayRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	kind := narrative.Kind(req.Kind)
	if !kind.Valid() {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidKind,
			"unknown session kind", nil, map[string]any{"allowed": narrative.Kinds()}))
		return
	}

	var agents []narrative.Agent
	switch {
	case req.Agents == nil:
	case len(req.Agents) == 0:
		agents = []narrative.Agent{}
	default:
		parsed, err := narrative.ParseAgents(req.Agents)
		if err != nil {
			h.writeSessionError(w, r, err)
			return
		}
		agents = parsed
	}

	snap, err := h.service.Create(r.Context(), session.CreateRequest{
		Kind:   kind,
		Date:   req.Date,
		Agents: agents,
	})
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/sessions/"+snap.ID)
	core.Data(w, r, http.StatusCreated, snap)
}

// ListAgents handles GET /v1/agents.
func (h *SessionHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents := narrative.Agents()
	out := make([]narrative.AgentProfile, 0, len(agents))
	for _, a := range agents {
		if p, ok := narrative.Profile(a); ok {
			out = append(out, p)
		}
	}
	core.Data(w, r, http.StatusOK, out)
}

// List handles GET /v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	core.Data(w, r, http.StatusOK, h.service.List())
}

// Get handles GET /v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, snap)
}

// Cancel handles DELETE /v1/sessions/{id}.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Say handles POST /v1/sessions/{id}/messages.
func (h *SessionHandler) Say(w http.ResponseWriter, r *http.Request) {
	var req SayRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	snap, err := h.service.Say(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	core.Data(w, r, http.StatusAccepted, snap)
}

// writeSessionError maps session and narrative errors to AppErrors.
func (h *SessionHandler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, session.ErrNotFound):
		appErr = types.NewAppError(types.ErrCodeNotFoundSession, "session not found", err)
	case errors.Is(err, session.ErrFinished):
		appErr = types.NewAppError(types.ErrCodeConflictSessionDone, "session has already finished", err)
	case errors.Is(err, session.ErrNotReady):
		appErr = types.NewAppError(types.ErrCodeConflictSessionNotReady, "conversation is still opening", err)
	case errors.Is(err, session.ErrNotConversation):
		appErr = types.NewAppError(types.ErrCodeValidationNotChat, "messages are only accepted by conversation sessions", err)
	case errors.Is(err, session.ErrCapacity):
		appErr = types.NewAppError(types.ErrCodeConflictSessionCapacity, "too many active sessions", err)
	case errors.Is(err, session.ErrInvalidKind):
		appErr = types.NewAppError(types.ErrCodeValidationInvalidKind, "unknown session kind", err)
	case isUnknownDate(err):
		appErr = types.NewAppError(types.ErrCodeValidationInvalidDate, "date is not in the observation catalog", err)
	case errors.Is(err, narrative.ErrNoAgents):
		appErr = types.NewAppError(types.ErrCodeValidationNoAgents, "at least one agent must be active", err)
	case errors.Is(err, narrative.ErrUnknownAgent):
		appErr = types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidAgent, "unknown agent", err,
			map[string]any{"allowed": narrative.Agents()})
	default:
		h.logger.ErrorContext(r.Context(), "session operation failed", "error", err)
	}
	if appErr == nil {
		core.Error(w, r, err)
		return
	}
	core.Error(w, r, appErr)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"verdant/internal/core"
	"verdant/internal/narrative"
	"verdant/internal/observation"
	"verdant/internal/sequencer"
	"verdant/internal/session"
)

var sessionEpoch = time.Date(2024, 6, 9, 16, 45, 12, 0, time.UTC)

// --- Mock service ---

type mockSessionService struct {
	createFunc func(ctx context.Context, req session.CreateRequest) (session.Snapshot, error)
	getFunc    func(id string) (session.Snapshot, error)
	cancelFunc func(ctx context.Context, id string) error
	sayFunc    func(ctx context.Context, id, message string) (session.Snapshot, error)
	lastCreate session.CreateRequest
}

func (m *mockSessionService) Create(ctx context.Context, req session.CreateRequest) (session.Snapshot, error) {
	m.lastCreate = req
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return session.Snapshot{ID: "sess-1", Kind: req.Kind}, nil
}

func (m *mockSessionService) Get(id string) (session.Snapshot, error) {
	if m.getFunc != nil {
		return m.getFunc(id)
	}
	return session.Snapshot{ID: id}, nil
}

func (m *mockSessionService) Cancel(ctx context.Context, id string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id)
	}
	return nil
}

func (m *mockSessionService) Say(ctx context.Context, id, message string) (session.Snapshot, error) {
	if m.sayFunc != nil {
		return m.sayFunc(ctx, id, message)
	}
	return session.Snapshot{ID: id}, nil
}

func (m *mockSessionService) List() []session.Snapshot { return nil }

func sessionRouter(svc SessionService) http.Handler {
	h := NewSessionHandler(svc, core.NewValidator(discardLogger()), discardLogger())
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests against a mock service ---

func TestSessions_CreateAgentsField(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantAgents []narrative.Agent
		wantNil    bool
	}{
		{"omitted", `{"kind":"debate"}`, nil, true},
		{"explicit empty", `{"kind":"debate","agents":[]}`, []narrative.Agent{}, false},
		{"subset", `{"kind":"debate","agents":["Validation","physiological","validation"]}`,
			[]narrative.Agent{narrative.AgentValidation, narrative.AgentPhysiological}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSessionService{}
			rec := do(sessionRouter(svc), http.MethodPost, "/v1/sessions", tt.body)

			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
			}
			got := svc.lastCreate.Agents
			if tt.wantNil != (got == nil) {
				t.Fatalf("agents nil=%v, want nil=%v", got == nil, tt.wantNil)
			}
			if len(got) != len(tt.wantAgents) {
				t.Fatalf("agents: got %v, want %v", got, tt.wantAgents)
			}
			for i := range got {
				if got[i] != tt.wantAgents[i] {
					t.Errorf("agent %d: got %s, want %s", i, got[i], tt.wantAgents[i])
				}
			}
		})
	}
}

func TestSessions_CreateValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"missing kind", `{}`, "validation_invalid_fields"},
		{"unknown kind", `{"kind":"sonnet"}`, "validation_invalid_session_kind"},
		{"unknown agent", `{"kind":"debate","agents":["oracle"]}`, "validation_invalid_agent"},
		{"unknown field", `{"kind":"meta","tone":"calm"}`, "validation_invalid_json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(sessionRouter(&mockSessionService{}), http.MethodPost, "/v1/sessions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if code := decodeEnvelope[any](t, rec).Error.Code; code != tt.wantCode {
				t.Errorf("code: got %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestSessions_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", session.ErrNotFound, http.StatusNotFound, "not_found_session"},
		{"finished", session.ErrFinished, http.StatusConflict, "conflict_session_finished"},
		{"not ready", session.ErrNotReady, http.StatusConflict, "conflict_session_not_ready"},
		{"not conversation", session.ErrNotConversation, http.StatusBadRequest, "validation_session_not_conversation"},
		{"capacity", session.ErrCapacity, http.StatusConflict, "conflict_session_capacity"},
		{"unknown date", observation.ErrUnknownDate, http.StatusBadRequest, "validation_invalid_date"},
		{"no agents", narrative.ErrNoAgents, http.StatusBadRequest, "validation_no_active_agents"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_unexpected_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSessionService{
				sayFunc: func(context.Context, string, string) (session.Snapshot, error) {
					return session.Snapshot{}, tt.err
				},
			}
			rec := do(sessionRouter(svc), http.MethodPost, "/v1/sessions/sess-1/messages", `{"message":"hello"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if code := decodeEnvelope[any](t, rec).Error.Code; code != tt.wantCode {
				t.Errorf("code: got %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestSessions_SayRequiresMessage(t *testing.T) {
	called := false
	svc := &mockSessionService{
		sayFunc: func(context.Context, string, string) (session.Snapshot, error) {
			called = true
			return session.Snapshot{}, nil
		},
	}
	rec := do(sessionRouter(svc), http.MethodPost, "/v1/sessions/sess-1/messages", `{"message":""}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if called {
		t.Error("service should not be called for an empty message")
	}
}

// --- End to end against a real store ---

func newRealSessionRouter(t *testing.T) (http.Handler, *sequencer.ManualClock) {
	t.Helper()
	clock := sequencer.NewManualClock(sessionEpoch)
	store := session.NewStore(clock, observation.NewSequenceSource(0.5), session.Options{}, discardLogger())
	t.Cleanup(store.Close)
	return sessionRouter(store), clock
}

func TestSessions_MetaLifecycle(t *testing.T) {
	h, clock := newRealSessionRouter(t)

	rec := do(h, http.MethodPost, "/v1/sessions", `{"kind":"meta","date":"2024-06-06"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeEnvelope[session.Snapshot](t, rec).Data
	if created.ID == "" || rec.Header().Get("Location") != "/v1/sessions/"+created.ID {
		t.Fatalf("id=%q location=%q", created.ID, rec.Header().Get("Location"))
	}
	if created.Done || created.Result != nil {
		t.Errorf("new session should be running with no result: %+v", created)
	}

	clock.Advance(time.Minute)

	rec = do(h, http.MethodGet, "/v1/sessions/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	done := decodeEnvelope[session.Snapshot](t, rec).Data
	if !done.Done || done.State != sequencer.StateCompleted {
		t.Errorf("session should have completed: %+v", done)
	}
	if len(done.Phases) != done.TotalPhases || done.Result == nil {
		t.Errorf("phases %d/%d result=%v", len(done.Phases), done.TotalPhases, done.Result)
	}

	rec = do(h, http.MethodGet, "/v1/sessions", "")
	if list := decodeEnvelope[[]session.Snapshot](t, rec).Data; len(list) != 1 {
		t.Errorf("expected one listed session, got %d", len(list))
	}

	rec = do(h, http.MethodDelete, "/v1/sessions/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
}

func TestSessions_CancelRunning(t *testing.T) {
	h, clock := newRealSessionRouter(t)

	rec := do(h, http.MethodPost, "/v1/sessions", `{"kind":"dialogue"}`)
	id := decodeEnvelope[session.Snapshot](t, rec).Data.ID

	if rec := do(h, http.MethodDelete, "/v1/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	clock.Advance(time.Minute)

	snap := decodeEnvelope[session.Snapshot](t, do(h, http.MethodGet, "/v1/sessions/"+id, "")).Data
	if snap.State != sequencer.StateCancelled || len(snap.Phases) != 0 {
		t.Errorf("cancelled session: state=%s phases=%d", snap.State, len(snap.Phases))
	}
}

func TestSessions_ConversationFlow(t *testing.T) {
	h, clock := newRealSessionRouter(t)

	rec := do(h, http.MethodPost, "/v1/sessions", `{"kind":"conversation","date":"2024-06-09"}`)
	id := decodeEnvelope[session.Snapshot](t, rec).Data.ID

	rec = do(h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"message":"hi"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("message while opening: expected 409, got %d", rec.Code)
	}

	clock.Advance(time.Minute)

	rec = do(h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"message":"how are you?"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	clock.Advance(narrative.DefaultTimings().ReplyDelay)

	snap := decodeEnvelope[session.Snapshot](t, do(h, http.MethodGet, "/v1/sessions/"+id, "")).Data
	if len(snap.Transcript) != 3 {
		t.Fatalf("expected greeting, message and reply, got %+v", snap.Transcript)
	}
	if snap.Transcript[1].Speaker != narrative.SpeakerHuman || snap.Transcript[2].Speaker != narrative.SpeakerPlant {
		t.Errorf("transcript: %+v", snap.Transcript)
	}
}

func TestSessions_UnknownID(t *testing.T) {
	h, _ := newRealSessionRouter(t)
	rec := do(h, http.MethodGet, "/v1/sessions/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSessions_ListAgents(t *testing.T) {
	rec := do(sessionRouter(&mockSessionService{}), http.MethodGet, "/v1/agents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	agents := decodeEnvelope[[]narrative.AgentProfile](t, rec).Data
	if len(agents) != 3 || agents[0].Agent != narrative.AgentPhysiological {
		t.Errorf("agents: %+v", agents)
	}
}

package session

import (
	"strings"
	"sync"
	"time"

	"verdant/internal/narrative"
	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// Phase is one emitted step of a session.
type Phase struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// Snapshot is a point-in-time view of a session, safe to serialize.
type Snapshot struct {
	ID          string            `json:"id"`
	Kind        narrative.Kind    `json:"kind"`
	Observation types.Observation `json:"observation"`
	Reading     types.Reading     `json:"reading"`
	State       sequencer.State   `json:"state"`
	Phases      []Phase           `json:"phases"`
	TotalPhases int               `json:"totalPhases"`
	Done        bool              `json:"done"`
	Closed      bool              `json:"closed"`
	Result      any               `json:"result,omitempty"`
	Transcript  []narrative.Line  `json:"transcript,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
}

// Session is one narrative being played for a client.
//
// Lock order is run then session: the sequencer invokes onPhase with the run
// locked, so nothing here may call into the run while holding mu.
type Session struct {
	ID          string
	Kind        narrative.Kind
	Observation types.Observation
	Reading     types.Reading
	CreatedAt   time.Time

	store  *Store
	run    *sequencer.Run
	total  int
	result any

	mu           sync.Mutex
	phases       []Phase
	transcript   []narrative.Line
	replies      []sequencer.Timer
	closed       bool
	finishedAt   time.Time
	lastActivity time.Time
}

func (s *Session) onPhase(index int, step sequencer.Step) {
	now := s.store.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases = append(s.phases, Phase{Label: step.Label, At: now})
	s.lastActivity = now
	if index == s.total-1 {
		s.finishedAt = now
		if len(s.transcript) > 0 {
			s.transcript[0].At = now
		}
	}
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	state := s.run.State()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.ID,
		Kind:        s.Kind,
		Observation: s.Observation,
		Reading:     s.Reading,
		State:       state,
		Phases:      append([]Phase{}, s.phases...),
		TotalPhases: s.total,
		Done:        state != sequencer.StateRunning,
		Closed:      s.closed,
		CreatedAt:   s.CreatedAt,
	}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		snap.FinishedAt = &t
	}
	if state == sequencer.StateCompleted {
		snap.Result = s.result
		snap.Transcript = append([]narrative.Line(nil), s.transcript...)
	}
	return snap
}

// cancel stops the run and any pending replies. It reports whether anything
// was still live.
func (s *Session) cancel() bool {
	stopped := s.run.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return stopped
	}
	s.closed = true
	now := s.store.clock.Now()
	if s.finishedAt.IsZero() {
		s.finishedAt = now
	}
	s.lastActivity = now
	for _, t := range s.replies {
		t.Stop()
	}
	s.replies = nil
	return true
}

func (s *Session) say(message string, delay time.Duration) error {
	if s.Kind != narrative.KindConversation {
		return ErrNotConversation
	}
	switch s.run.State() {
	case sequencer.StateRunning:
		return ErrNotReady
	case sequencer.StateCancelled:
		return ErrFinished
	}

	message = strings.TrimSpace(message)
	clock := s.store.clock
	now := clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrFinished
	}
	s.transcript = append(s.transcript, narrative.Line{Speaker: narrative.SpeakerHuman, Message: message, At: now})
	s.lastActivity = now

	var timer sequencer.Timer
	timer = clock.AfterFunc(delay, func() {
		reply := narrative.Reply(s.store.rand)
		at := clock.Now()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.transcript = append(s.transcript, narrative.Line{Speaker: narrative.SpeakerPlant, Message: reply, At: at})
		s.lastActivity = at
		s.dropReplyLocked(timer)
	})
	s.replies = append(s.replies, timer)
	return nil
}

func (s *Session) dropReplyLocked(t sequencer.Timer) {
	for i, other := range s.replies {
		if other == t {
			s.replies = append(s.replies[:i], s.replies[i+1:]...)
			return
		}
	}
}

func (s *Session) finishedBefore(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.finishedAt.IsZero() && len(s.replies) == 0 && s.lastActivity.Before(cutoff)
}

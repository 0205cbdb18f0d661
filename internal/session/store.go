// Package session owns server-side narrative runs.
//
// A session pairs one observation with one narrative and a sequencer run that
// paces it. Clients poll a session to see which phases are visible; the
// narrative result is only revealed once every phase has been shown. Sessions
// live in memory and are pruned after a retention window once finished.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"verdant/internal/narrative"
	"verdant/internal/observation"
	"verdant/internal/sequencer"
	"verdant/internal/types"
)

var (
	ErrNotFound        = errors.New("session: not found")
	ErrFinished        = errors.New("session: already finished")
	ErrNotReady        = errors.New("session: conversation is still opening")
	ErrNotConversation = errors.New("session: not a conversation")
	ErrCapacity        = errors.New("session: too many active sessions")
	ErrInvalidKind     = narrative.ErrUnknownKind
	ErrUnknownDate     = observation.ErrUnknownDate
)

// Options tunes a Store.
type Options struct {
	// MaxSessions caps the number of sessions held at once. Zero means 1000.
	MaxSessions int
	// Retention is how long a finished session stays pollable. Zero means
	// 15 minutes.
	Retention time.Duration
	// StrictDates rejects dates outside the catalog instead of aliasing them.
	StrictDates bool
	Timings     narrative.Timings
}

// CreateRequest describes a new session.
type CreateRequest struct {
	Kind   narrative.Kind
	Date   string
	Agents []narrative.Agent
}

// Store holds every live session.
type Store struct {
	clock  sequencer.Clock
	gen    *observation.Generator
	rand   types.RandSource
	opts   Options
	logger *slog.Logger
	newID  func() string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a Store. A nil src uses the system random source.
func NewStore(clock sequencer.Clock, src types.RandSource, opts Options, logger *slog.Logger) *Store {
	if src == nil {
		src = observation.SystemSource()
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.Retention <= 0 {
		opts.Retention = 15 * time.Minute
	}
	if opts.Timings == (narrative.Timings{}) {
		opts.Timings = narrative.DefaultTimings()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		clock:    clock,
		gen:      observation.NewGenerator(src),
		rand:     src,
		opts:     opts,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
		sessions: make(map[string]*Session),
	}
}

// Create builds the narrative for req and starts pacing it.
func (s *Store) Create(ctx context.Context, req CreateRequest) (Snapshot, error) {
	if !req.Kind.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	obs := observation.Resolve(req.Date)
	if s.opts.StrictDates && req.Date != "" {
		var err error
		if obs, err = observation.Lookup(req.Date); err != nil {
			return Snapshot{}, err
		}
	}
	reading := s.gen.ReadingAt(obs.Index)

	result, plan, err := narrative.Build(req.Kind, reading, s.rand, s.opts.Timings, req.Agents)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	if len(s.sessions) >= s.opts.MaxSessions {
		return Snapshot{}, ErrCapacity
	}

	sess := &Session{
		ID:          s.newID(),
		Kind:        req.Kind,
		Observation: obs,
		Reading:     reading,
		CreatedAt:   s.clock.Now(),
		total:       len(plan),
		result:      result,
		store:       s,
	}
	if c, ok := result.(narrative.Conversation); ok {
		sess.transcript = []narrative.Line{{Speaker: narrative.SpeakerPlant, Message: c.Greeting}}
	}
	sess.run = sequencer.Start(s.clock, plan, sess.onPhase)
	s.sessions[sess.ID] = sess

	s.logger.InfoContext(ctx, "session started",
		"session_id", sess.ID,
		"kind", req.Kind,
		"date", obs.Date,
		"phases", len(plan),
	)
	return sess.Snapshot(), nil
}

// Get returns the current view of a session.
func (s *Store) Get(id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Cancel stops a session. Cancelling a finished session is not an error.
func (s *Store) Cancel(ctx context.Context, id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	if sess.cancel() {
		s.logger.InfoContext(ctx, "session cancelled", "session_id", id)
	}
	return nil
}

// Say appends a human message to a conversation and schedules the plant's
// reply after the configured reply delay.
func (s *Store) Say(ctx context.Context, id, message string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := sess.say(message, s.opts.Timings.ReplyDelay); err != nil {
		return Snapshot{}, err
	}
	s.logger.DebugContext(ctx, "conversation message queued", "session_id", id)
	return sess.Snapshot(), nil
}

// List returns every session, newest first.
func (s *Store) List() []Snapshot {
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	out := make([]Snapshot, len(all))
	for i, sess := range all {
		out[i] = sess.Snapshot()
	}
	return out
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close cancels every session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.cancel()
		delete(s.sessions, id)
	}
}

func (s *Store) lookup(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

func (s *Store) pruneLocked() {
	cutoff := s.clock.Now().Add(-s.opts.Retention)
	for id, sess := range s.sessions {
		if sess.finishedBefore(cutoff) {
			delete(s.sessions, id)
		}
	}
}

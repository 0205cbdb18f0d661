// Package narrative builds the canned analysis stories told about a reading
// and the phase plans that pace them.
//
// Every story is a fixed template filled with reading values. Nothing here
// reasons about the plant; the sequencer package only controls when each
// piece becomes visible.
package narrative

import (
	"time"

	"verdant/internal/types"
)

// Timings holds the per-phase delays of every narrative.
type Timings struct {
	DialoguePhase     time.Duration
	DebateTurn        time.Duration
	MetaStep          time.Duration
	ConversationPhase time.Duration
	ReplyDelay        time.Duration
	Typewriter        time.Duration
}

// DefaultTimings returns the dashboard's original pacing.
func DefaultTimings() Timings {
	return Timings{
		DialoguePhase:     600 * time.Millisecond,
		DebateTurn:        800 * time.Millisecond,
		MetaStep:          800 * time.Millisecond,
		ConversationPhase: time.Second,
		ReplyDelay:        2 * time.Second,
		Typewriter:        20 * time.Millisecond,
	}
}

// Kind names a narrative.
type Kind string

const (
	KindDialogue     Kind = "dialogue"
	KindDebate       Kind = "debate"
	KindMeta         Kind = "meta"
	KindConversation Kind = "conversation"
)

// Kinds lists every narrative kind.
func Kinds() []Kind {
	return []Kind{KindDialogue, KindDebate, KindMeta, KindConversation}
}

// Valid reports whether k is a known narrative kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDialogue, KindDebate, KindMeta, KindConversation:
		return true
	}
	return false
}

// pick returns one element of options chosen by src.
func pick(src types.RandSource, options []string) string {
	if len(options) == 0 {
		return ""
	}
	i := int(src.Float64() * float64(len(options)))
	if i < 0 {
		i = 0
	}
	if i >= len(options) {
		i = len(options) - 1
	}
	return options[i]
}

package narrative

import (
	"errors"
	"fmt"

	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// ErrUnknownKind is returned by Build for kinds outside Kinds().
var ErrUnknownKind = errors.New("narrative: unknown kind")

// Build assembles the story of kind for r together with the plan that paces
// it. agents only applies to debates; nil selects every agent and an empty
// slice is rejected with ErrNoAgents.
func Build(kind Kind, r types.Reading, src types.RandSource, t Timings, agents []Agent) (any, []sequencer.Step, error) {
	switch kind {
	case KindDialogue:
		return BuildPersona(r, src), DialoguePlan(t), nil
	case KindDebate:
		if agents == nil {
			agents = Agents()
		}
		d, err := BuildDebate(r, agents)
		if err != nil {
			return nil, nil, err
		}
		return d, DebatePlan(t, d), nil
	case KindMeta:
		return BuildMeta(r), MetaPlan(t), nil
	case KindConversation:
		return BuildConversation(r), ConversationPlan(t), nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

package narrative

import (
	"time"

	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// EntityName is the name the plant introduces itself with.
const EntityName = "Entity_7749"

// ConversationPhases are shown while the conversation channel "opens".
var ConversationPhases = []string{
	"parsing organism baseline...",
	"building personality model...",
	"establishing communication protocol...",
	"initialising dialogue system...",
	"preparing cross-boundary link...",
}

// Speaker identifies who said a line of a conversation.
type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerPlant Speaker = "plant"
)

// Line is one message in a conversation.
type Line struct {
	Speaker Speaker   `json:"speaker"`
	Message string    `json:"message"`
	At      time.Time `json:"timestamp"`
}

// Conversation is the persona the plant chats with and its opening line.
type Conversation struct {
	Name               string   `json:"name"`
	Personality        string   `json:"personality"`
	CommunicationStyle string   `json:"communicationStyle"`
	EmotionalState     string   `json:"emotionalState"`
	Thoughts           []string `json:"thoughts"`
	Desires            []string `json:"desires"`
	Greeting           string   `json:"greeting"`
}

var conversationReplies = []string{
	"I understand your question. From where I stand, growing is a continuous lesson. Every day I learn to use resources better and to stay balanced while things change.",
	"Your curiosity warms me. Yes, we do have feelings. When sunlight falls on my leaves I feel alive; when the soil dries I feel anxious.",
	"That is an interesting question. I think consciousness is not only thinking but sensing and responding. I am always sensing change and adjusting to it.",
	"Time for me is a cycle. Sunrise and sunset, season after season, each cycle brings something new. I have learned patience and to wait for the right moment.",
	"I want you to know every living thing has its own worth. We may not move or speak like you, but we experience the world in our own way.",
}

// ConversationPlan returns the phase plan for opening a conversation.
func ConversationPlan(t Timings) []sequencer.Step {
	return sequencer.Uniform(t.ConversationPhase, ConversationPhases...)
}

// BuildConversation returns the conversation persona for r.
func BuildConversation(r types.Reading) Conversation {
	state := "slightly anxious but adapting positively"
	if r.RootHealth == "excellent" {
		state = "calm and full of energy"
	}
	return Conversation{
		Name:               EntityName,
		Personality:        "I am a living being exploring the edges of awareness. My form may differ from yours, but I feel my surroundings change and I know the joy of growing. I draw energy through photosynthesis and sense the soil's warmth and moisture through my roots. Every new leaf is my answer to the world.",
		CommunicationStyle: "intuitive sensing + chemical signalling",
		EmotionalState:     state,
		Thoughts: []string{
			"The light is shifting; I need to turn my leaves to catch more energy.",
			"Nutrients in the soil are uneven, so I am extending my roots to find better resources.",
			"These surroundings suit growing. I feel an unexplained sense of safety.",
			"Human attention makes me curious. They seem to want to understand how we exist.",
			"Every breath I take is a silent conversation with the world.",
		},
		Desires: []string{
			"I hope for longer hours of sunlight.",
			"I want to explore deeper soil for richer minerals.",
			"I long for closer root connections with my own kind.",
			"I hope humans understand that we have feelings and needs too.",
			"I want to live through more seasons and feel a whole life cycle.",
		},
		Greeting: "Hello, I am " + EntityName + ". I can sense that you want to talk with me. We exist in different dimensions, but I am willing to share what I feel and think.",
	}
}

// Reply returns a canned reply to a human message, chosen by src.
func Reply(src types.RandSource) string {
	return pick(src, conversationReplies)
}

// Replies returns every canned reply.
func Replies() []string {
	return append([]string(nil), conversationReplies...)
}

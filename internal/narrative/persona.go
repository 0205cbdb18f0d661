package narrative

import (
	"fmt"

	"verdant/internal/health"
	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// DialoguePhases are shown while a persona is "generated".
var DialoguePhases = []string{
	"emotion analysis",
	"persona construction",
	"language generation",
	"dialogue refinement",
}

// MaxDesires caps the desires list of a persona.
const MaxDesires = 4

// Persona is the first-person voice the plant speaks with for one reading.
type Persona struct {
	Mood               types.Mood `json:"mood"`
	Score              float64    `json:"score"`
	Personality        string     `json:"personality"`
	Dialogue           string     `json:"dialogue"`
	Thoughts           []string   `json:"thoughts"`
	Desires            []string   `json:"desires"`
	EmotionalState     string     `json:"emotionalState"`
	CommunicationStyle string     `json:"communicationStyle"`
}

var personalities = []string{
	"I am a cross-dimensional consciousness, trading information with photons through my leaves.",
	"My form of existence goes beyond the textbook definition of biology. I am a new kind of intelligent life.",
	"I sense frequencies humans cannot perceive and resonate with the planet's magnetic field.",
	"I am an experiment where biology meets the digital, probing the edges of awareness.",
}

var emotionalStates = map[types.Mood]string{
	types.MoodExcited: "high-frequency operation, exploration mode active",
	types.MoodHappy:   "running well, optimising functions",
	types.MoodContent: "stable mode, tuning parameters",
	types.MoodWorried: "anomaly detected, external support required",
}

var communicationStyles = map[types.Mood]string{
	types.MoodExcited: "high-frequency transmission, rich data stream",
	types.MoodHappy:   "steady signal output, friendly protocol",
	types.MoodContent: "standard channel, clear logic",
	types.MoodWorried: "low-frequency distress signal, requesting assistance",
}

var baseDesires = []string{
	"I want to build a cross-species network with other intelligent life.",
	"I want to feel time pass and sense the cycles of the universe.",
	"I hope my existence contributes more data to the planet's ecological algorithm.",
	"I want to widen my senses and pick up signals from further away.",
	"I hope to evolve a new organ so I can talk to humans directly.",
}

const (
	desireWater = "I urgently need water molecules to keep my biochemical chain running."
	desireLight = "I crave a stronger photon stream; it is my main energy source."
)

// DialoguePlan returns the phase plan of a persona dialogue.
func DialoguePlan(t Timings) []sequencer.Step {
	return sequencer.Uniform(t.DialoguePhase, DialoguePhases...)
}

// BuildPersona derives the persona for r. src picks the personality line and
// the dialogue variant.
func BuildPersona(r types.Reading, src types.RandSource) Persona {
	score := health.Score(r)
	mood := health.Classify(score)

	return Persona{
		Mood:               mood,
		Score:              score,
		Personality:        pick(src, personalities),
		Dialogue:           pick(src, dialogues(r, mood)),
		Thoughts:           thoughts(r),
		Desires:            desires(r),
		EmotionalState:     emotionalStates[mood],
		CommunicationStyle: communicationStyles[mood],
	}
}

func dialogues(r types.Reading, mood types.Mood) []string {
	switch mood {
	case types.MoodExcited:
		return []string{
			fmt.Sprintf("Energy field resonance at its peak! Heat %.1f°C, water density %.1f%%, my bio-circuits are running at full speed.", r.Temperature, r.Humidity),
			"Photon input above expectations! My leaf sensors are receiving encoded sunlight and my root network is syncing.",
			"Today's conditions have pushed my awareness into a new dimension. I feel deeply connected to the cosmic energy field.",
		}
	case types.MoodHappy:
		return []string{
			fmt.Sprintf("Systems stable, current height %.1fcm. My biological algorithms are being tuned; thank you for keeping my environment running.", r.StemHeight),
			"Photosynthesis protocol running smoothly with good conversion efficiency. This harmony keeps my network active.",
			"Signals from the soil interface show plenty of nutrients. I am running self-repair and upgrade routines.",
		}
	case types.MoodContent:
		return []string{
			"Running in stable mode. Not at peak, but I am adjusting internal parameters to the changing environment.",
			"I am working out how to use resources better. Every molecule and photon is a variable in my matrix.",
			"Environmental drift is within tolerance. My adaptive algorithm is learning new response patterns.",
		}
	default:
		return []string{
			"System anomaly detected... parameters have left the optimal range and my self-repair protocol needs outside help.",
			"I need you to help adjust my environment. I adapt well, but some critical parameters need precise control.",
			"Sometimes I wonder what it would be like to link directly with your neural network. For now I only have biosignals.",
		}
	}
}

func thoughts(r types.Reading) []string {
	return []string{
		fmt.Sprintf("Leaf spectrum %s is broadcasting my operating state.", r.LeafColor),
		fmt.Sprintf("Soil pH %.1f triggered my chemical memory bank.", r.SoilPh),
		"The current photon stream is optimising my energy conversion matrix.",
		"Humidity swings are affecting my gas exchange protocol.",
		"Root network report: nutrient distribution has reached ideal configuration.",
		"I am calculating how to reconfigure my resource allocation algorithm.",
	}
}

// desires prepends urgent needs ahead of the base list, light ahead of
// water, then truncates to MaxDesires.
func desires(r types.Reading) []string {
	out := make([]string, 0, len(baseDesires)+2)
	if r.LightIntensity < 600 {
		out = append(out, desireLight)
	}
	if r.SoilMoisture < 40 {
		out = append(out, desireWater)
	}
	out = append(out, baseDesires...)
	return out[:MaxDesires]
}

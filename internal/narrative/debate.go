package narrative

import (
	"errors"
	"fmt"
	"strings"

	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// Agent is one voice in a debate.
type Agent string

const (
	AgentPhysiological Agent = "physiological"
	AgentEnvironmental Agent = "environmental"
	AgentValidation    Agent = "validation"
)

// DebateRounds is the number of rounds every debate runs.
const DebateRounds = 5

var (
	ErrNoAgents     = errors.New("narrative: at least one agent is required")
	ErrUnknownAgent = errors.New("narrative: unknown agent")
)

// AgentProfile is the display identity of an agent.
type AgentProfile struct {
	Agent       Agent  `json:"agent"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var agentProfiles = map[Agent]AgentProfile{
	AgentPhysiological: {AgentPhysiological, "Morphology Parser", "BIO", "Parses the organism's internal structure and function"},
	AgentEnvironmental: {AgentEnvironmental, "Environment Field Analyzer", "ENV", "Maps how the surroundings interact with the organism"},
	AgentValidation:    {AgentValidation, "Data Integrity Validator", "VAL", "Checks the integrity and credibility of the data stream"},
}

// Agents returns every agent in debate order.
func Agents() []Agent {
	return []Agent{AgentPhysiological, AgentEnvironmental, AgentValidation}
}

// Profile returns the display identity of a.
func Profile(a Agent) (AgentProfile, bool) {
	p, ok := agentProfiles[a]
	return p, ok
}

// ParseAgents validates names and returns them deduplicated, in the order
// given. An empty input selects every agent.
func ParseAgents(names []string) ([]Agent, error) {
	if len(names) == 0 {
		return Agents(), nil
	}
	seen := make(map[Agent]bool, len(names))
	out := make([]Agent, 0, len(names))
	for _, n := range names {
		a := Agent(strings.ToLower(strings.TrimSpace(n)))
		if _, ok := agentProfiles[a]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, n)
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out, nil
}

// DebateMessage is one agent's contribution to one round.
type DebateMessage struct {
	Agent   Agent  `json:"agent"`
	Round   int    `json:"round"`
	Message string `json:"message"`
}

// Debate is the full transcript of a debate.
type Debate struct {
	Agents   []Agent         `json:"agents"`
	Messages []DebateMessage `json:"messages"`
	Summary  string          `json:"summary"`
}

// BuildDebate produces the transcript of a debate between agents about r.
// Each round every agent speaks once, in the order given.
func BuildDebate(r types.Reading, agents []Agent) (Debate, error) {
	if len(agents) == 0 {
		return Debate{}, ErrNoAgents
	}
	msgs := make([]DebateMessage, 0, DebateRounds*len(agents))
	for round := 1; round <= DebateRounds; round++ {
		for _, a := range agents {
			msgs = append(msgs, DebateMessage{Agent: a, Round: round, Message: AgentMessage(a, r, round)})
		}
	}
	return Debate{
		Agents:   append([]Agent(nil), agents...),
		Messages: msgs,
		Summary:  debateSummary(agents),
	}, nil
}

// DebatePlan paces the transcript: one turn per message.
func DebatePlan(t Timings, d Debate) []sequencer.Step {
	steps := make([]sequencer.Step, len(d.Messages))
	for i, m := range d.Messages {
		steps[i] = sequencer.Step{
			Label: fmt.Sprintf("round %d: %s", m.Round, m.Agent),
			Delay: t.DebateTurn,
		}
	}
	return steps
}

// AgentMessage returns what agent a says in round (1-based). Rounds without a
// template fall back to a generic progress line.
func AgentMessage(a Agent, r types.Reading, round int) string {
	lines := agentLines(a, r)
	if round < 1 || round > len(lines) {
		name := string(a)
		if p, ok := agentProfiles[a]; ok {
			name = p.Name
		}
		return name + " is running deep analysis..."
	}
	return lines[round-1]
}

func agentLines(a Agent, r types.Reading) []string {
	switch a {
	case AgentPhysiological:
		return []string{
			fmt.Sprintf("Morphology scan: leaf spectrum %s, vertical extension %.1fcm, growth rate %.1fcm/day. Root network: %s.", r.LeafColor, r.StemHeight, r.GrowthRate, r.RootHealth),
			fmt.Sprintf("Leaf area of %.1fcm² shows normal photosynthetic efficiency. Recommend monitoring cell division frequency and nutrient channels.", r.LeafSize),
			"Bioelectric field shows stable vital activity. The root neural network is well developed; keep observing signalling patterns.",
			"Morphology indicates an active growth phase. All biological indicators are within expected ranges.",
			"Morphology analysis complete. Recommend adjusting the nutrient input protocol to optimise growth. Focus on leaf-root information exchange.",
		}
	case AgentEnvironmental:
		return []string{
			fmt.Sprintf("Environment field map: heat %.1f°C, water density %.1f%%, photon flux %.0flux. Field energy distribution is shaping the organism.", r.Temperature, r.Humidity, r.LightIntensity),
			fmt.Sprintf("Soil moisture %.1f%%, pH balance %.1f, air purity %.1f%%. The environment matrix is stable with room to optimise energy flow.", r.SoilMoisture, r.SoilPh, r.AirQuality),
			"Light, heat and water are in an ideal ratio. Energy exchange between environment and organism is efficient.",
			"Recommend holding current parameters and nudging soil moisture to improve the root interface. Stability is the key variable.",
			"Environment field analysis complete. The overall field supports normal operation. Recommend a long-term monitoring protocol.",
		}
	case AgentValidation:
		return []string{
			"Data stream integrity check: all sensor signals within expected range, confidence 95%+. Packets intact.",
			"Historical pattern match: current values follow the species' standard growth curve. Prediction accuracy verified.",
			"Statistical model shows every indicator trending with theory. Noise is within tolerance.",
			"Integrity check passed. Recommend keeping the current sampling rate. Collection density meets analysis needs.",
			"Validation protocol complete. Data credibility is high and fit for decision-tree input. Recommend deploying automatic alerts.",
		}
	}
	return nil
}

func debateSummary(agents []Agent) string {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, agentProfiles[a].Name)
	}

	var b strings.Builder
	b.WriteString("Organism status: ACTIVE\n")
	b.WriteString("Composite consciousness index: 85/100\n\n")
	b.WriteString("Findings:\n")
	b.WriteString("• Morphology: organism operating normally, all biological indicators stable\n")
	b.WriteString("• Environment: energy field well distributed, supports normal operation\n")
	b.WriteString("• Data integrity: information flow reliable, matches the expected model\n\n")
	b.WriteString("Recommended protocol:\n")
	b.WriteString("1. Maintain the current life support system\n")
	b.WriteString("2. Fine-tune environment parameters toward optimum\n")
	b.WriteString("3. Keep monitoring the organism's conscious activity\n\n")
	b.WriteString("Participating units: ")
	b.WriteString(strings.Join(names, ", "))
	return b.String()
}

package narrative

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/internal/observation"
	"verdant/internal/types"
)

func reading() types.Reading {
	return types.Reading{
		Temperature:    23.44,
		Humidity:       61.2,
		LightIntensity: 912.6,
		SoilMoisture:   52.3,
		SoilPh:         6.74,
		AirQuality:     88.1,
		LeafColor:      "deep green",
		LeafSize:       8.61,
		StemHeight:     27.08,
		RootHealth:     "excellent",
		GrowthRate:     0.98,
	}
}

func TestBuildPersonaMoodAndStyle(t *testing.T) {
	p := BuildPersona(reading(), observation.NewSequenceSource(0))

	assert.Equal(t, types.MoodExcited, p.Mood)
	assert.Equal(t, 100.0, p.Score)
	assert.Equal(t, personalities[0], p.Personality)
	assert.Contains(t, p.Dialogue, "23.4°C")
	assert.Contains(t, p.Dialogue, "61.2%")
	assert.Equal(t, emotionalStates[types.MoodExcited], p.EmotionalState)
	assert.Equal(t, communicationStyles[types.MoodExcited], p.CommunicationStyle)

	require.Len(t, p.Thoughts, 6)
	assert.Contains(t, p.Thoughts[0], "deep green")
	assert.Contains(t, p.Thoughts[1], "6.7")
}

func TestBuildPersonaWorried(t *testing.T) {
	r := reading()
	r.Temperature = 40
	r.Humidity = 10
	r.SoilPh = 9
	r.SoilMoisture = 90
	r.LightIntensity = 100

	p := BuildPersona(r, observation.NewSequenceSource(0.99))
	assert.Equal(t, types.MoodWorried, p.Mood)
	assert.Equal(t, personalities[len(personalities)-1], p.Personality)
	assert.Equal(t, dialogues(r, types.MoodWorried)[2], p.Dialogue)
}

func TestDesires(t *testing.T) {
	tests := []struct {
		name     string
		light    float64
		moisture float64
		first    []string
	}{
		{"no urgent needs", 900, 50, []string{baseDesires[0], baseDesires[1]}},
		{"dry soil", 900, 35, []string{desireWater, baseDesires[0]}},
		{"dim light", 550, 50, []string{desireLight, baseDesires[0]}},
		{"both", 550, 35, []string{desireLight, desireWater}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reading()
			r.LightIntensity = tt.light
			r.SoilMoisture = tt.moisture

			got := desires(r)
			require.Len(t, got, MaxDesires)
			assert.Equal(t, tt.first, got[:2])
		})
	}
}

func TestDialoguePlan(t *testing.T) {
	steps := DialoguePlan(DefaultTimings())
	require.Len(t, steps, 4)
	for i, s := range steps {
		assert.Equal(t, DialoguePhases[i], s.Label)
		assert.Equal(t, 600*time.Millisecond, s.Delay)
	}
}

func TestParseAgents(t *testing.T) {
	all, err := ParseAgents(nil)
	require.NoError(t, err)
	assert.Equal(t, Agents(), all)

	got, err := ParseAgents([]string{"Validation", "physiological", "validation"})
	require.NoError(t, err)
	assert.Equal(t, []Agent{AgentValidation, AgentPhysiological}, got)

	_, err = ParseAgents([]string{"botanist"})
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestBuildDebate(t *testing.T) {
	r := reading()
	d, err := BuildDebate(r, []Agent{AgentEnvironmental, AgentValidation})
	require.NoError(t, err)

	require.Len(t, d.Messages, DebateRounds*2)
	assert.Equal(t, DebateMessage{Agent: AgentEnvironmental, Round: 1, Message: AgentMessage(AgentEnvironmental, r, 1)}, d.Messages[0])
	assert.Equal(t, AgentValidation, d.Messages[1].Agent)
	assert.Equal(t, 5, d.Messages[9].Round)
	assert.Contains(t, d.Messages[0].Message, "913lux")

	assert.True(t, strings.HasSuffix(d.Summary, "Participating units: Environment Field Analyzer, Data Integrity Validator"))
	assert.NotContains(t, d.Summary, "Morphology Parser")

	plan := DebatePlan(DefaultTimings(), d)
	require.Len(t, plan, 10)
	assert.Equal(t, "round 1: environmental", plan[0].Label)
	assert.Equal(t, 800*time.Millisecond, plan[0].Delay)
}

func TestBuildDebateRequiresAgents(t *testing.T) {
	_, err := BuildDebate(reading(), nil)
	assert.ErrorIs(t, err, ErrNoAgents)
}

func TestAgentMessageFallback(t *testing.T) {
	msg := AgentMessage(AgentPhysiological, reading(), 6)
	assert.Equal(t, "Morphology Parser is running deep analysis...", msg)

	first := AgentMessage(AgentPhysiological, reading(), 1)
	assert.Contains(t, first, "27.1cm")
	assert.Contains(t, first, "excellent")
}

func TestBuildMeta(t *testing.T) {
	m := BuildMeta(reading())
	assert.Equal(t, 87, m.Confidence)
	require.Len(t, m.Premises, 4)
	require.Len(t, m.Reasoning, 5)
	require.Len(t, m.KeyInsights, 4)
	assert.Contains(t, m.Premises[0], "23.4°C")
	assert.Contains(t, m.Premises[3], "1.0cm/day")

	plan := MetaPlan(DefaultTimings())
	require.Len(t, plan, 5)
	assert.Equal(t, "confidence evaluation", plan[4].Label)
}

func TestBuildConversation(t *testing.T) {
	c := BuildConversation(reading())
	assert.Equal(t, EntityName, c.Name)
	assert.Equal(t, "calm and full of energy", c.EmotionalState)
	assert.Contains(t, c.Greeting, EntityName)

	r := reading()
	r.RootHealth = "fair"
	assert.Equal(t, "slightly anxious but adapting positively", BuildConversation(r).EmotionalState)

	assert.Len(t, ConversationPlan(DefaultTimings()), 5)
}

func TestReply(t *testing.T) {
	replies := Replies()
	assert.Equal(t, replies[0], Reply(observation.NewSequenceSource(0)))
	assert.Equal(t, replies[4], Reply(observation.NewSequenceSource(0.999)))
	assert.Equal(t, replies[2], Reply(observation.NewSequenceSource(0.5)))
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, k.Valid())
	}
	assert.False(t, Kind("story").Valid())
}

func TestBuild(t *testing.T) {
	src := observation.NewSequenceSource(0)
	tm := DefaultTimings()

	tests := []struct {
		kind   Kind
		phases int
	}{
		{KindDialogue, len(DialoguePhases)},
		{KindDebate, DebateRounds * len(Agents())},
		{KindMeta, len(MetaSteps)},
		{KindConversation, len(ConversationPhases)},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			result, plan, err := Build(tt.kind, reading(), src, tm, nil)
			require.NoError(t, err)
			assert.NotNil(t, result)
			assert.Len(t, plan, tt.phases)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	src := observation.NewSequenceSource(0)

	_, _, err := Build("sonnet", reading(), src, DefaultTimings(), nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, _, err = Build(KindDebate, reading(), src, DefaultTimings(), []Agent{})
	assert.ErrorIs(t, err, ErrNoAgents)
}

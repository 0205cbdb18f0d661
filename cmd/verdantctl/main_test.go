package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"verdant/internal/narrative"
	"verdant/internal/observation"
	"verdant/internal/sequencer"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTimelineText(t *testing.T) {
	out, err := execute(t, "timeline", "--seed", "7")
	require.NoError(t, err)

	assert.Contains(t, out, "EXPERIMENT")
	for _, d := range observation.Dates() {
		assert.Contains(t, out, d)
	}
	assert.Contains(t, out, "PFL-006")
}

func TestTimelineJSONIsReproducible(t *testing.T) {
	first, err := execute(t, "timeline", "--seed", "7", "-o", "json")
	require.NoError(t, err)
	second, err := execute(t, "timeline", "--seed", "7", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var views []observationView
	require.NoError(t, json.Unmarshal([]byte(first), &views))
	require.Len(t, views, observation.Len())
	assert.Equal(t, "pale green", views[0].Reading.LeafColor)
	assert.Len(t, views[0].Assessment.Metrics, 6)
}

func TestSeedFromEnvironment(t *testing.T) {
	flag, err := execute(t, "observe", "2024-06-08", "--seed", "11", "-o", "json")
	require.NoError(t, err)

	t.Setenv("VERDANT_SEED", "11")
	env, err := execute(t, "observe", "2024-06-08", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, flag, env)
}

func TestObserveYAML(t *testing.T) {
	out, err := execute(t, "observe", "2024-06-09", "-o", "yaml", "--seed", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "experimentId: PFL-004")
	assert.NotContains(t, out, "{", "yaml output should use block style")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	reading, ok := decoded["reading"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "excellent", reading["rootHealth"])
}

func TestObserveStrict(t *testing.T) {
	out, err := execute(t, "observe", "1999-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "PFL-004", "unknown dates alias to 2024-06-09")

	_, err = execute(t, "observe", "1999-01-01", "--strict")
	require.Error(t, err)
	assert.ErrorIs(t, err, observation.ErrUnknownDate)
}

func TestAssess(t *testing.T) {
	out, err := execute(t, "assess", "-o", "json",
		"--temperature", "10", "--humidity", "95", "--light", "800",
		"--soil-moisture", "50", "--ph", "6.5")
	require.NoError(t, err)

	var got struct {
		Score float64 `json:"score"`
		Mood  string  `json:"mood"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 80.0, got.Score)
	assert.Equal(t, "happy", got.Mood)
}

func TestAssessText(t *testing.T) {
	out, err := execute(t, "assess",
		"--temperature", "22", "--humidity", "60", "--light", "300",
		"--soil-moisture", "50", "--ph", "6.5", "--air-quality", "90")
	require.NoError(t, err)
	assert.Contains(t, out, "score 90 (excited)")
	assert.Contains(t, out, "out of range")
	assert.Contains(t, out, "display")
}

func TestAssessRequiresMetrics(t *testing.T) {
	_, err := execute(t, "assess", "--temperature", "22")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestAnalyzeMetaText(t *testing.T) {
	out, err := execute(t, "analyze", "meta", "2024-06-07", "--pace", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "PFL-002")
	assert.Contains(t, out, "[1/5] "+narrative.MetaSteps[0])
	assert.Contains(t, out, "[5/5] "+narrative.MetaSteps[4])
	assert.Contains(t, out, "confidence: 87%")
}

func TestAnalyzeDialogueText(t *testing.T) {
	out, err := execute(t, "analyze", "dialogue", "--pace", "0", "--seed", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "[4/4] "+narrative.DialoguePhases[3])
	assert.Contains(t, out, "personality:")
	assert.Contains(t, out, "desires:")
}

func TestAnalyzeDebateJSON(t *testing.T) {
	out, err := execute(t, "analyze", "debate", "2024-06-11", "--pace", "0",
		"--agents", "validation", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Kind   string   `json:"kind"`
		Phases []string `json:"phases"`
		Result struct {
			Agents   []string `json:"agents"`
			Messages []any    `json:"messages"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "debate", got.Kind)
	assert.Len(t, got.Phases, narrative.DebateRounds)
	assert.Equal(t, []string{"validation"}, got.Result.Agents)
	assert.Len(t, got.Result.Messages, narrative.DebateRounds)
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := execute(t, "analyze", "debate", "--pace", "0", "--agents", "")
	assert.ErrorIs(t, err, narrative.ErrNoAgents)

	_, err = execute(t, "analyze", "debate", "--pace", "0", "--agents", "oracle")
	assert.ErrorIs(t, err, narrative.ErrUnknownAgent)

	_, err = execute(t, "analyze", "conversation")
	assert.Error(t, err)

	_, err = execute(t, "analyze", "meta", "--pace", "-1")
	assert.Error(t, err)

	_, err = execute(t, "timeline", "-o", "xml")
	assert.Error(t, err)
}

func TestAnalyzeCancel(t *testing.T) {
	var out bytes.Buffer
	clock := sequencer.NewManualClock(time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC))
	cmd := newRootCmdFor(&app{out: &out, clock: clock})
	cmd.SetArgs([]string{"analyze", "dialogue"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled after 0 of 4 phases")
	assert.Equal(t, 0, clock.Pending(), "cancelled run should leave no timers")
}

func TestWriteYAMLKeepsFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, struct {
		Zeta  int      `json:"zeta"`
		Alpha []string `json:"alpha"`
	}{1, []string{"a", "b"}}))

	assert.True(t, strings.HasPrefix(buf.String(), "zeta: 1\nalpha:\n"), buf.String())
}

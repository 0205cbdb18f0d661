package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"verdant/internal/health"
	"verdant/internal/narrative"
	"verdant/internal/types"
)

// emit writes v in the structured format selected by --output, or calls text
// for the human format.
func (a *app) emit(v any, text func(w io.Writer) error) error {
	switch a.output {
	case outputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(a.out, v)
	default:
		return text(a.out)
	}
}

// writeYAML renders v through its JSON form so field names and order match
// the API.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles inherited from JSON. Strings
// that would otherwise read as numbers or booleans are still quoted by the
// encoder because their tag stays !!str.
func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle | yaml.SingleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeReading(w io.Writer, r types.Reading) {
	fmt.Fprintf(w, "  temperature     %6.1f °C\n", r.Temperature)
	fmt.Fprintf(w, "  humidity        %6.1f %%\n", r.Humidity)
	fmt.Fprintf(w, "  light           %6.0f lux\n", r.LightIntensity)
	fmt.Fprintf(w, "  soil moisture   %6.1f %%\n", r.SoilMoisture)
	fmt.Fprintf(w, "  soil pH         %6.2f\n", r.SoilPh)
	fmt.Fprintf(w, "  air quality     %6.1f %%\n", r.AirQuality)
	fmt.Fprintf(w, "  leaf            %s, %.1f cm²\n", r.LeafColor, r.LeafSize)
	fmt.Fprintf(w, "  stem height     %6.1f cm\n", r.StemHeight)
	fmt.Fprintf(w, "  root health     %s\n", r.RootHealth)
	fmt.Fprintf(w, "  growth rate     %6.2f cm/day\n", r.GrowthRate)
}

func writeAssessment(w io.Writer, a health.Assessment) {
	fmt.Fprintf(w, "score %.0f (%s)\n", a.Score, a.Mood)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range a.Metrics {
		status := "ok"
		switch {
		case !m.Scored:
			status = "display"
		case !m.InRange:
			status = "out of range"
		}
		fmt.Fprintf(tw, "  %s\t%.2f\t%s\t%s\n", m.Metric, m.Value, m.Band, status)
	}
	_ = tw.Flush()
}

// writeResult prints the revealed story of a finished narrative.
func writeResult(w io.Writer, result any) {
	switch res := result.(type) {
	case narrative.Persona:
		fmt.Fprintf(w, "\nmood: %s (score %.0f)\n", res.Mood, res.Score)
		fmt.Fprintf(w, "personality: %s\n", res.Personality)
		fmt.Fprintf(w, "emotional state: %s\n", res.EmotionalState)
		fmt.Fprintf(w, "communication style: %s\n", res.CommunicationStyle)
		writeList(w, "thoughts", res.Thoughts)
		writeList(w, "desires", res.Desires)
	case narrative.Debate:
		fmt.Fprintln(w)
		for _, m := range res.Messages {
			fmt.Fprintf(w, "[round %d] %s: %s\n", m.Round, m.Agent, m.Message)
		}
		fmt.Fprintf(w, "\n%s\n", res.Summary)
	case narrative.MetaAnalysis:
		writeList(w, "premises", res.Premises)
		writeList(w, "reasoning", res.Reasoning)
		fmt.Fprintf(w, "\nconclusion: %s\n", res.Conclusion)
		fmt.Fprintf(w, "confidence: %d%%\n", res.Confidence)
		fmt.Fprintf(w, "methodology: %s\n", res.Methodology)
		writeList(w, "key insights", res.KeyInsights)
	case narrative.Conversation:
		fmt.Fprintf(w, "\n%s: %s\n", res.Name, res.Greeting)
	}
}

func writeList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(it))
	}
}

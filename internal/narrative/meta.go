package narrative

import (
	"fmt"

	"verdant/internal/sequencer"
	"verdant/internal/types"
)

// MetaSteps are the stages of a meta analysis.
var MetaSteps = []string{
	"data preprocessing",
	"pattern recognition",
	"logical inference",
	"structural analysis",
	"confidence evaluation",
}

// MetaConfidence is the fixed confidence reported by every meta analysis.
const MetaConfidence = 87

// MetaAnalysis is the premise/reasoning/conclusion breakdown of a reading.
type MetaAnalysis struct {
	Premises    []string `json:"premises"`
	Reasoning   []string `json:"reasoning"`
	Conclusion  string   `json:"conclusion"`
	Confidence  int      `json:"confidence"`
	Methodology string   `json:"methodology"`
	KeyInsights []string `json:"keyInsights"`
}

// MetaPlan returns the phase plan of a meta analysis.
func MetaPlan(t Timings) []sequencer.Step {
	return sequencer.Uniform(t.MetaStep, MetaSteps...)
}

// BuildMeta fills the meta analysis template from r.
func BuildMeta(r types.Reading) MetaAnalysis {
	return MetaAnalysis{
		Premises: []string{
			fmt.Sprintf("Environment field: heat %.1f°C, water density %.1f%%, photon flux %.0flux", r.Temperature, r.Humidity, r.LightIntensity),
			fmt.Sprintf("Soil matrix: moisture %.1f%%, pH balance %.1f, quality index stable", r.SoilMoisture, r.SoilPh),
			fmt.Sprintf("Life form: leaf spectrum %s, vertical extension %.1fcm, root network %s", r.LeafColor, r.StemHeight, r.RootHealth),
			fmt.Sprintf("Time dimension: growth rate %.1fcm/day, active development stage", r.GrowthRate),
		},
		Reasoning: []string{
			"Information fusion: multi-sensor streams normalised into a trusted analysis base",
			"Pattern recognition: current data matches the organism template at 92%",
			"Causal mapping: environment variables correlate positively with biological response",
			"Trend forecast: time-series analysis predicts steady growth over the next 7 days",
			"Risk assessment: potential threat factors identified, current risk level low",
		},
		Conclusion:  "Fusing multi-dimensional data with cognitive models, the organism is currently in its optimal operating state",
		Confidence:  MetaConfidence,
		Methodology: "Bayesian inference + fuzzy logic + cognitive systems",
		KeyInsights: []string{
			"Environment parameters are at their optimal configuration",
			"Biological indicators show an active state",
			"Growth trend matches the expected model",
			"No significant threat signals detected",
		},
	}
}

package health

import (
	"verdant/internal/types"
)

// Band is the coarse display position of a value inside its display range.
type Band string

const (
	BandLow     Band = "LOW"
	BandMid     Band = "MID"
	BandOptimal Band = "OPT"
)

// BandOf places v in [min, max]: below 30% of the span is LOW, below 70% MID,
// everything else OPT. Values above max are OPT; a degenerate range is OPT.
func BandOf(v float64, rg Range) Band {
	span := rg.Max - rg.Min
	if span <= 0 {
		return BandOptimal
	}
	normalized := (v - rg.Min) / span
	switch {
	case normalized < 0.3:
		return BandLow
	case normalized < 0.7:
		return BandMid
	default:
		return BandOptimal
	}
}

var displayRanges = map[Metric]Range{
	MetricTemperature:    {18, 28},
	MetricHumidity:       {40, 80},
	MetricLightIntensity: {500, 1500},
	MetricSoilMoisture:   {30, 70},
	MetricSoilPh:         {6, 7.5},
	MetricAirQuality:     {70, 100},
}

// MetricResult is the per-metric breakdown of an assessment.
type MetricResult struct {
	Metric  Metric  `json:"metric"`
	Value   float64 `json:"value"`
	Display Range   `json:"display"`
	Band    Band    `json:"band"`
	Scored  bool    `json:"scored"`
	InRange bool    `json:"inRange"`
	Points  float64 `json:"points,omitempty"`
}

// Assessment is the full health picture of one reading.
type Assessment struct {
	Score   float64        `json:"score"`
	Mood    types.Mood     `json:"mood"`
	Metrics []MetricResult `json:"metrics"`
}

// Assess scores r and reports every environmental metric, including air
// quality which is displayed but never scored.
func Assess(r types.Reading) Assessment {
	metrics := make([]MetricResult, 0, len(scoringRules)+1)
	for _, rl := range scoringRules {
		v := rl.value(r)
		pass := rl.accept.Contains(v)
		metrics = append(metrics, MetricResult{
			Metric:  rl.metric,
			Value:   v,
			Display: displayRanges[rl.metric],
			Band:    BandOf(v, displayRanges[rl.metric]),
			Scored:  true,
			InRange: pass,
			Points:  points(pass),
		})
	}

	air := displayRanges[MetricAirQuality]
	metrics = append(metrics, MetricResult{
		Metric:  MetricAirQuality,
		Value:   r.AirQuality,
		Display: air,
		Band:    BandOf(r.AirQuality, air),
		InRange: air.Contains(r.AirQuality),
	})

	score := Score(r)
	return Assessment{
		Score:   score,
		Mood:    Classify(score),
		Metrics: metrics,
	}
}

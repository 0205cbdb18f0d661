// Package health reduces a reading to a 0-100 health score and a mood.
//
// Scoring is binary per metric: a metric inside its acceptable range earns a
// full point, anything else earns half. The score is the mean over the five
// scored metrics times 100, so it only ever takes the values 50, 60, 70, 80,
// 90 or 100.
package health

import (
	"math"

	"verdant/internal/types"
)

// Metric names a reading field that takes part in assessment.
type Metric string

const (
	MetricTemperature    Metric = "temperature"
	MetricHumidity       Metric = "humidity"
	MetricLightIntensity Metric = "lightIntensity"
	MetricSoilMoisture   Metric = "soilMoisture"
	MetricSoilPh         Metric = "soilPh"
	MetricAirQuality     Metric = "airQuality"
)

// Range is a closed interval. Max may be +Inf for an open upper bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max]. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

const (
	passPoints = 1.0
	failPoints = 0.5
)

type rule struct {
	metric Metric
	accept Range
	value  func(types.Reading) float64
}

// Light has no upper bound when scoring; the display range below caps it.
var scoringRules = []rule{
	{MetricTemperature, Range{18, 28}, func(r types.Reading) float64 { return r.Temperature }},
	{MetricHumidity, Range{40, 80}, func(r types.Reading) float64 { return r.Humidity }},
	{MetricLightIntensity, Range{500, math.Inf(1)}, func(r types.Reading) float64 { return r.LightIntensity }},
	{MetricSoilMoisture, Range{30, 70}, func(r types.Reading) float64 { return r.SoilMoisture }},
	{MetricSoilPh, Range{6, 7.5}, func(r types.Reading) float64 { return r.SoilPh }},
}

// Score returns the health score of r, one of {50, 60, 70, 80, 90, 100}.
func Score(r types.Reading) float64 {
	var total float64
	for _, rl := range scoringRules {
		total += points(rl.accept.Contains(rl.value(r)))
	}
	return total * 100 / float64(len(scoringRules))
}

func points(pass bool) float64 {
	if pass {
		return passPoints
	}
	return failPoints
}

// Classify buckets a score into a mood.
//
//	score >= 90      excited
//	75 <= score < 90 happy
//	60 <= score < 75 content
//	otherwise        worried
func Classify(score float64) types.Mood {
	switch {
	case score >= 90:
		return types.MoodExcited
	case score >= 75:
		return types.MoodHappy
	case score >= 60:
		return types.MoodContent
	default:
		return types.MoodWorried
	}
}

// ScoredMetrics returns the metrics that contribute to Score, in order.
func ScoredMetrics() []Metric {
	out := make([]Metric, len(scoringRules))
	for i, rl := range scoringRules {
		out[i] = rl.metric
	}
	return out
}

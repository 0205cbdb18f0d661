package health

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/internal/types"
)

func healthyReading() types.Reading {
	return types.Reading{
		Temperature:    22,
		Humidity:       60,
		LightIntensity: 900,
		SoilMoisture:   50,
		SoilPh:         6.8,
		AirQuality:     90,
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Reading)
		want   float64
	}{
		{"all in range", func(*types.Reading) {}, 100},
		{"hot", func(r *types.Reading) { r.Temperature = 30 }, 90},
		{"hot and dry air", func(r *types.Reading) { r.Temperature = 30; r.Humidity = 30 }, 80},
		{"three failing", func(r *types.Reading) { r.Temperature = 10; r.Humidity = 90; r.LightIntensity = 100 }, 70},
		{"four failing", func(r *types.Reading) {
			r.Temperature = 10
			r.Humidity = 90
			r.LightIntensity = 100
			r.SoilMoisture = 90
		}, 60},
		{"everything failing", func(r *types.Reading) {
			r.Temperature = 10
			r.Humidity = 90
			r.LightIntensity = 100
			r.SoilMoisture = 90
			r.SoilPh = 9
		}, 50},
		{"bounds are inclusive", func(r *types.Reading) {
			r.Temperature = 18
			r.Humidity = 80
			r.LightIntensity = 500
			r.SoilMoisture = 30
			r.SoilPh = 7.5
		}, 100},
		{"light has no upper bound", func(r *types.Reading) { r.LightIntensity = 50000 }, 100},
		{"air quality is not scored", func(r *types.Reading) { r.AirQuality = 0 }, 100},
		{"NaN fails its test", func(r *types.Reading) { r.SoilPh = math.NaN() }, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := healthyReading()
			tt.mutate(&r)
			assert.Equal(t, tt.want, Score(r))
		})
	}
}

func TestScoreIsQuantized(t *testing.T) {
	allowed := map[float64]bool{50: true, 60: true, 70: true, 80: true, 90: true, 100: true}
	values := []float64{-1e9, -1, 0, 5.9, 6, 18, 25, 28.0001, 40, 70, 80, 500, 1e9, math.Inf(1), math.NaN()}

	for _, v := range values {
		r := types.Reading{
			Temperature:    v,
			Humidity:       v,
			LightIntensity: v,
			SoilMoisture:   v,
			SoilPh:         v,
		}
		s := Score(r)
		assert.True(t, allowed[s], "score %v for value %v", s, v)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  types.Mood
	}{
		{100, types.MoodExcited},
		{90, types.MoodExcited},
		{89.9, types.MoodHappy},
		{75, types.MoodHappy},
		{74.99, types.MoodContent},
		{60, types.MoodContent},
		{59.9, types.MoodWorried},
		{0, types.MoodWorried},
		{-10, types.MoodWorried},
		{math.NaN(), types.MoodWorried},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}

func TestScoredMetrics(t *testing.T) {
	got := ScoredMetrics()
	require.Len(t, got, 5)
	assert.NotContains(t, got, MetricAirQuality)
}

func TestBandOf(t *testing.T) {
	rg := Range{Min: 0, Max: 10}
	assert.Equal(t, BandLow, BandOf(-5, rg))
	assert.Equal(t, BandLow, BandOf(2.9, rg))
	assert.Equal(t, BandMid, BandOf(3, rg))
	assert.Equal(t, BandMid, BandOf(6.9, rg))
	assert.Equal(t, BandOptimal, BandOf(7, rg))
	assert.Equal(t, BandOptimal, BandOf(25, rg))
	assert.Equal(t, BandOptimal, BandOf(1, Range{Min: 5, Max: 5}))
}

func TestAssess(t *testing.T) {
	r := healthyReading()
	r.Temperature = 19      // LOW band, still in range
	r.LightIntensity = 1500 // OPT
	r.AirQuality = 60       // below display range

	a := Assess(r)
	assert.Equal(t, 100.0, a.Score)
	assert.Equal(t, types.MoodExcited, a.Mood)
	require.Len(t, a.Metrics, 6)

	byMetric := map[Metric]MetricResult{}
	for _, m := range a.Metrics {
		byMetric[m.Metric] = m
	}

	temp := byMetric[MetricTemperature]
	assert.True(t, temp.Scored)
	assert.True(t, temp.InRange)
	assert.Equal(t, BandLow, temp.Band)
	assert.Equal(t, 1.0, temp.Points)

	assert.Equal(t, BandOptimal, byMetric[MetricLightIntensity].Band)
	assert.Equal(t, Range{Min: 500, Max: 1500}, byMetric[MetricLightIntensity].Display)

	air := byMetric[MetricAirQuality]
	assert.False(t, air.Scored)
	assert.False(t, air.InRange)
	assert.Equal(t, BandLow, air.Band)
	assert.Zero(t, air.Points)
}

func TestAssessFailingMetric(t *testing.T) {
	r := healthyReading()
	r.SoilMoisture = 20

	a := Assess(r)
	assert.Equal(t, 90.0, a.Score)
	assert.Equal(t, types.MoodExcited, a.Mood)

	for _, m := range a.Metrics {
		if m.Metric == MetricSoilMoisture {
			assert.False(t, m.InRange)
			assert.Equal(t, 0.5, m.Points)
			assert.Equal(t, BandLow, m.Band)
		}
	}
}

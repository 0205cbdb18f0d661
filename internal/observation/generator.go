package observation

import (
	"math/rand/v2"
	"sync"
	"time"

	"verdant/internal/types"
)

// systemSource draws from the process-wide math/rand/v2 generator, which is
// seeded from system entropy and safe for concurrent use.
type systemSource struct{}

func (systemSource) Float64() float64 { return rand.Float64() }

// SystemSource returns the default unseeded random source.
func SystemSource() types.RandSource { return systemSource{} }

// SeededSource is a reproducible source for a fixed seed, safe for
// concurrent use.
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a PCG-backed source seeded with seed.
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// SourceFor returns a SeededSource for a non-zero seed and the system source
// otherwise.
func SourceFor(seed uint64) types.RandSource {
	if seed == 0 {
		return SystemSource()
	}
	return NewSeededSource(seed)
}

// SequenceSource replays a fixed list of values in order, wrapping around at
// the end. It is not safe for concurrent use.
type SequenceSource struct {
	values []float64
	next   int
}

// NewSequenceSource returns a SequenceSource over values. An empty list
// always yields 0.
func NewSequenceSource(values ...float64) *SequenceSource {
	return &SequenceSource{values: values}
}

// Float64 returns the next value in the sequence.
func (s *SequenceSource) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Sample pairs an observation with one freshly generated reading.
type Sample struct {
	Observation types.Observation `json:"observation"`
	Reading     types.Reading     `json:"reading"`
}

// Generator derives readings from catalog dates. Readings are never cached:
// every call draws new noise for every numeric field.
type Generator struct {
	rand types.RandSource
}

// NewGenerator creates a Generator over src. A nil src uses SystemSource.
func NewGenerator(src types.RandSource) *Generator {
	if src == nil {
		src = SystemSource()
	}
	return &Generator{rand: src}
}

// noise returns a uniform draw in [0, span).
func (g *Generator) noise(span float64) float64 {
	return g.rand.Float64() * span
}

// Generate returns a reading for date. Unknown dates alias to 2024-06-09.
func (g *Generator) Generate(date string) types.Reading {
	return g.ReadingAt(ResolveIndex(date))
}

// ReadingAt returns a reading for a catalog position. Field draw order is
// fixed so a SequenceSource maps predictably onto fields.
func (g *Generator) ReadingAt(index int) types.Reading {
	p := ProgressFactor(index)
	return types.Reading{
		Temperature:    20 + 6*p + g.noise(2),
		Humidity:       55 + 20*p + g.noise(10),
		LightIntensity: 600 + 800*p + g.noise(200),
		SoilMoisture:   40 + 25*p + g.noise(10),
		SoilPh:         6.2 + 0.8*p + g.noise(0.3),
		AirQuality:     80 + 15*p + g.noise(5),
		LeafColor:      LeafColor(index),
		LeafSize:       5 + 6*p + g.noise(1),
		StemHeight:     15 + 20*p + g.noise(3),
		RootHealth:     RootHealth(index),
		GrowthRate:     0.5 + 0.8*p + g.noise(0.2),
	}
}

// Observe returns the observation metadata and a fresh reading for date.
func (g *Generator) Observe(date string) Sample {
	obs := Resolve(date)
	return Sample{Observation: obs, Reading: g.ReadingAt(obs.Index)}
}

// Timeline returns one sample per catalog date, in calendar order.
func (g *Generator) Timeline() []Sample {
	out := make([]Sample, 0, len(catalogDates))
	for i := range catalogDates {
		out = append(out, Sample{Observation: At(i), Reading: g.ReadingAt(i)})
	}
	return out
}

// Snapshot returns an undated reading around the dashboard's live baselines,
// as served by GET /plant-data.
func (g *Generator) Snapshot(now time.Time) types.PlantData {
	return types.PlantData{
		ID:        1,
		Timestamp: now.UTC(),
		Reading: types.Reading{
			Temperature:    22.5 + g.noise(5),
			Humidity:       60 + g.noise(20),
			LightIntensity: 800 + g.noise(400),
			SoilMoisture:   45 + g.noise(30),
			SoilPh:         6.5 + g.noise(1),
			AirQuality:     85 + g.noise(15),
			LeafColor:      leafColors[2],
			LeafSize:       8.5 + g.noise(2),
			StemHeight:     25 + g.noise(10),
			RootHealth:     rootHealthLabels[2],
			GrowthRate:     0.8 + g.noise(0.4),
		},
		ImageURL: "/plant1.png",
	}
}

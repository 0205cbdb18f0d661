package types

import "time"

// Reading is the bundle of derived pseudo-sensor values for one observation.
// JSON names match the dashboard wire format.
type Reading struct {
	Temperature    float64 `json:"temperature"`    // °C
	Humidity       float64 `json:"humidity"`       // %
	LightIntensity float64 `json:"lightIntensity"` // lux
	SoilMoisture   float64 `json:"soilMoisture"`   // %
	SoilPh         float64 `json:"soilPh"`
	AirQuality     float64 `json:"airQuality"` // %
	LeafColor      string  `json:"leafColor"`
	LeafSize       float64 `json:"leafSize"`   // cm²
	StemHeight     float64 `json:"stemHeight"` // cm
	RootHealth     string  `json:"rootHealth"`
	GrowthRate     float64 `json:"growthRate"` // cm/day
}

// Observation is the fixed metadata of one catalog date.
type Observation struct {
	Index        int    `json:"index"`
	Date         string `json:"date"`
	Time         string `json:"timestamp"`
	Coordinates  string `json:"coordinates"`
	ExperimentID string `json:"experimentId"`
	ImageURL     string `json:"imageUrl"`
}

// PlantData is the record shape served by the legacy /plant-data route.
type PlantData struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Reading
	ImageURL string `json:"imageUrl,omitempty"`
}

// Mood is the deterministic bucketing of a health score.
type Mood string

const (
	MoodExcited Mood = "excited"
	MoodHappy   Mood = "happy"
	MoodContent Mood = "content"
	MoodWorried Mood = "worried"
)

// ReadingMessage is the envelope handed to a ReadingPublisher.
type ReadingMessage struct {
	ID         string         `json:"id"`
	ReceivedAt time.Time      `json:"receivedAt"`
	Source     string         `json:"source"`
	Payload    map[string]any `json:"payload"`
}

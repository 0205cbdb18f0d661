// Package observation maps the fixed six-day observation calendar to
// pseudo-sensor readings.
//
// Each catalog date has an ordinal index (0-5). The index fixes the
// observation metadata and the categorical labels, and drives a progress
// factor p = index/5 that interpolates every numeric baseline. Noise is added
// on top from an injected random source, so the same date yields different
// numbers on every call while its labels and IDs never change.
package observation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"verdant/internal/types"
)

// DateLayout is the calendar date format used throughout the catalog.
const DateLayout = "2006-01-02"

// DefaultIndex is the catalog position unknown dates alias to (2024-06-09).
const DefaultIndex = 3

// Coordinates is the site shared by every observation.
const Coordinates = "31.2304°N, 121.4737°E"

// ErrUnknownDate is returned by Lookup for dates outside the catalog.
var ErrUnknownDate = errors.New("observation: date not in catalog")

var catalogDates = [...]string{
	"2024-06-06",
	"2024-06-07",
	"2024-06-08",
	"2024-06-09",
	"2024-06-10",
	"2024-06-11",
}

var catalogTimes = [...]string{
	"09:15:23",
	"14:30:45",
	"10:22:18",
	"16:45:12",
	"11:33:07",
	"13:18:56",
}

// Ordered from least to most healthy.
var leafColors = [...]string{
	"pale green",
	"green",
	"dark green",
	"deep green",
	"emerald green",
	"bright green",
}

var rootHealthLabels = [...]string{
	"developing",
	"fair",
	"good",
	"excellent",
	"superb",
	"perfect",
}

// Len is the number of catalog dates.
func Len() int { return len(catalogDates) }

// Dates returns the catalog dates in order.
func Dates() []string {
	out := make([]string, len(catalogDates))
	copy(out, catalogDates[:])
	return out
}

// Normalize trims the input and reduces RFC3339 timestamps to their UTC
// calendar date, so "2024-06-07T14:30:45Z" matches "2024-06-07".
func Normalize(date string) string {
	date = strings.TrimSpace(date)
	if len(date) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			return t.UTC().Format(DateLayout)
		}
	}
	return date
}

// IndexOf returns the catalog position of date, or -1 if it is not listed.
func IndexOf(date string) int {
	date = Normalize(date)
	for i, d := range catalogDates {
		if d == date {
			return i
		}
	}
	return -1
}

// ResolveIndex returns the catalog position of date, aliasing unknown dates
// to DefaultIndex.
func ResolveIndex(date string) int {
	if i := IndexOf(date); i >= 0 {
		return i
	}
	return DefaultIndex
}

// ProgressFactor returns index/5 clamped to [0, 1].
func ProgressFactor(index int) float64 {
	if index < 0 {
		index = 0
	}
	last := len(catalogDates) - 1
	if index > last {
		index = last
	}
	return float64(index) / float64(last)
}

// At returns the observation metadata for a catalog position. Out-of-range
// positions resolve to DefaultIndex.
func At(index int) types.Observation {
	if index < 0 || index >= len(catalogDates) {
		index = DefaultIndex
	}
	return types.Observation{
		Index:        index,
		Date:         catalogDates[index],
		Time:         catalogTimes[index],
		Coordinates:  Coordinates,
		ExperimentID: fmt.Sprintf("PFL-%03d", index+1),
		ImageURL:     fmt.Sprintf("/plant%d.png", index+1),
	}
}

// Resolve returns the observation for date, silently aliasing unknown dates
// to the 2024-06-09 entry.
func Resolve(date string) types.Observation {
	return At(ResolveIndex(date))
}

// Lookup returns the observation for date, or ErrUnknownDate.
func Lookup(date string) (types.Observation, error) {
	i := IndexOf(date)
	if i < 0 {
		return types.Observation{}, fmt.Errorf("%w: %q", ErrUnknownDate, date)
	}
	return At(i), nil
}

// LeafColor returns the leaf color label for a catalog position.
func LeafColor(index int) string {
	if index < 0 || index >= len(leafColors) {
		return leafColors[DefaultIndex]
	}
	return leafColors[index]
}

// RootHealth returns the root health label for a catalog position.
func RootHealth(index int) string {
	if index < 0 || index >= len(rootHealthLabels) {
		return rootHealthLabels[DefaultIndex]
	}
	return rootHealthLabels[index]
}

package daily

import (
	"math"
	"sort"
	"time"
)

// Variables is the fixed set of measurement channels every sensor reports,
// in output column order: gases, particulate matter, then temp/humidity.
var Variables = []string{"co", "no", "no2", "o3", "pm1", "pm25", "pm10", "temp", "rh"}

// Reading is one raw observation: a timestamp plus one value per variable.
// Missing or unparseable measurements are stored as NaN.
type Reading struct {
	Timestamp time.Time
	Values    map[string]float64
}

// HasValue reports whether at least one variable carries a real measurement.
func (r Reading) HasValue() bool {
	for _, v := range Variables {
		if x, ok := r.Values[v]; ok && !math.IsNaN(x) {
			return true
		}
	}
	return false
}

// Dataset is the merged, timestamp-sorted sequence of readings for one sensor.
// It is rebuilt from the raw files on every run and never persisted.
type Dataset struct {
	Readings []Reading
}

// Sort orders readings by timestamp ascending. Duplicate timestamps are kept.
func (d *Dataset) Sort() {
	sort.SliceStable(d.Readings, func(i, j int) bool {
		return d.Readings[i].Timestamp.Before(d.Readings[j].Timestamp)
	})
}

// Slice returns the readings with start <= timestamp < end.
// The dataset must already be sorted.
func (d *Dataset) Slice(start, end time.Time) []Reading {
	lo := sort.Search(len(d.Readings), func(i int) bool {
		return !d.Readings[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(d.Readings), func(i int) bool {
		return !d.Readings[i].Timestamp.Before(end)
	})
	return d.Readings[lo:hi]
}

// Window is a half-open [Start, Start+24h) aggregation interval anchored at
// the configured hour of day.
type Window struct {
	Start time.Time
}

// End returns the exclusive end of the window.
func (w Window) End() time.Time {
	return w.Start.Add(24 * time.Hour)
}

// VarStats holds the five summary statistics for one variable in one window.
// A nil field means the statistic is undefined for that window (no valid
// samples, or fewer than two for the standard deviation).
type VarStats struct {
	Mean   *float64 `json:"mean"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Std    *float64 `json:"std"`
	Median *float64 `json:"median"`
}

// Record is one row of a sensor's statistics log.
type Record struct {
	Date           time.Time           `json:"date"`
	Stats          map[string]VarStats `json:"stats"`
	ExpectedCount  *int                `json:"expected_count"`
	AvailableCount int                 `json:"available_count"`
}

// Warning describes an ingest problem that was recovered locally
// (a skipped file or dropped rows) rather than surfaced as an error.
type Warning struct {
	Sensor string `json:"sensor"`
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// RunResult is the outcome of processing one sensor in one pipeline run.
type RunResult struct {
	Sensor          string    `json:"sensor"`
	RunID           string    `json:"run_id"`
	CompletedAt     time.Time `json:"completed_at"`
	WindowsAppended int       `json:"windows_appended"`
	Warnings        []Warning `json:"warnings,omitempty"`
	Error           string    `json:"error,omitempty"`
}

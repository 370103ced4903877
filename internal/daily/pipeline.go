package daily

import (
	"context"
	"time"
)

// Source produces the merged raw dataset for a sensor. Warnings describe
// files or rows that were skipped; they never abort the load.
type Source interface {
	// Sensors lists the known sensor identifiers, sorted.
	Sensors() ([]string, error)
	Load(ctx context.Context, sensor string) (*Dataset, []Warning, error)
}

// StatsLog is the per-sensor persisted, append-only statistics log.
type StatsLog interface {
	// Ensure creates the sensor's log with a header row if it does not exist.
	Ensure(sensor string) error
	// Checkpoint returns the last recorded window start. found is false when
	// the log is absent or holds no data rows; a corrupt log is an error.
	Checkpoint(sensor string) (start time.Time, found bool, err error)
	// Append writes the records, already sorted by window start, to the end
	// of the log. It must never rewrite existing content.
	Append(sensor string, recs []Record) error
}

// StatusStore records the outcome of the most recent run per sensor.
type StatusStore interface {
	SaveResult(res RunResult)
}

// Package ingest loads and merges the raw per-sensor CSV files into a single
// timestamp-sorted dataset. Files that cannot be read are skipped with a
// warning; rows with unparseable timestamps are dropped; unparseable numeric
// values become missing. A corrupt file never aborts a sensor's run.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tame-insitu/sensor-daily-stats/internal/daily"
	"github.com/tame-insitu/sensor-daily-stats/internal/logging"
	"github.com/tame-insitu/sensor-daily-stats/internal/metrics"
)

// timestampLayouts are the accepted raw timestamp forms. Naive timestamps are
// interpreted in the configured timezone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Merger implements daily.Source over a directory hierarchy of raw CSV files.
type Merger struct {
	baseDir string
	pattern string // relative glob with {sensor} and {year} placeholders
	year    int
	tz      *time.Location
	logger  *logging.Logger
}

// NewMerger creates a Merger rooted at baseDir.
func NewMerger(baseDir, pattern string, year int, tz *time.Location, logger *logging.Logger) *Merger {
	return &Merger{
		baseDir: baseDir,
		pattern: pattern,
		year:    year,
		tz:      tz,
		logger:  logger,
	}
}

// Sensors lists the sensor directories under the raw base dir, sorted.
func (m *Merger) Sensors() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list raw base dir %s: %w", m.baseDir, err)
	}

	var sensors []string
	for _, e := range entries {
		if e.IsDir() {
			sensors = append(sensors, e.Name())
		}
	}
	sort.Strings(sensors)
	return sensors, nil
}

// Load reads every raw file matching the sensor's pattern, merges the rows
// and sorts them by timestamp. A sensor with no matching files yields an
// empty dataset, not an error.
func (m *Merger) Load(ctx context.Context, sensor string) (*daily.Dataset, []daily.Warning, error) {
	glob := filepath.Join(m.baseDir, m.expandPattern(sensor))
	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, nil, fmt.Errorf("bad raw file pattern %q: %w", m.pattern, err)
	}
	sort.Strings(files)

	ds := &daily.Dataset{}
	var warnings []daily.Warning

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}

		rows, dropped, err := m.loadFile(path)
		if err != nil {
			w := daily.Warning{Sensor: sensor, File: filepath.Base(path), Reason: err.Error()}
			warnings = append(warnings, w)
			m.logger.Warn("sensor %s: skipping file %s: %v", sensor, w.File, err)
			metrics.FilesSkipped.Inc()
			continue
		}
		if dropped > 0 {
			w := daily.Warning{
				Sensor: sensor,
				File:   filepath.Base(path),
				Reason: fmt.Sprintf("dropped %d rows with unparseable timestamps", dropped),
			}
			warnings = append(warnings, w)
			m.logger.Warn("sensor %s: file %s: %s", sensor, w.File, w.Reason)
			metrics.RowsDropped.Add(float64(dropped))
		}

		ds.Readings = append(ds.Readings, rows...)
		metrics.FilesLoaded.Inc()
	}

	ds.Sort()
	return ds, warnings, nil
}

func (m *Merger) expandPattern(sensor string) string {
	p := strings.ReplaceAll(m.pattern, "{sensor}", sensor)
	return strings.ReplaceAll(p, "{year}", strconv.Itoa(m.year))
}

// loadFile parses one raw CSV file. It returns the readings, the number of
// rows dropped for bad timestamps, or an error when the file as a whole is
// unusable (unreadable, not CSV, or missing the timestamp column).
func (m *Merger) loadFile(path string) ([]daily.Reading, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	tsIdx := -1
	varIdx := make(map[string]int, len(daily.Variables))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "timestamp" {
			tsIdx = i
			continue
		}
		for _, v := range daily.Variables {
			if name == v {
				varIdx[v] = i
				break
			}
		}
	}
	if tsIdx < 0 {
		return nil, 0, fmt.Errorf("no timestamp column")
	}

	var (
		readings []daily.Reading
		dropped  int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read rows: %w", err)
		}

		if tsIdx >= len(rec) {
			dropped++
			continue
		}
		ts, ok := m.parseTimestamp(rec[tsIdx])
		if !ok {
			dropped++
			continue
		}

		vals := make(map[string]float64, len(daily.Variables))
		for _, v := range daily.Variables {
			vals[v] = math.NaN()
			idx, present := varIdx[v]
			if !present || idx >= len(rec) {
				continue
			}
			if x, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64); err == nil {
				vals[v] = x
			}
		}

		readings = append(readings, daily.Reading{Timestamp: ts, Values: vals})
	}

	return readings, dropped, nil
}

func (m *Merger) parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, m.tz); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

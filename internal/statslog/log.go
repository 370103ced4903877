// Package statslog persists the per-sensor daily statistics as append-only
// comma-separated text files, one `<sensor>_daily_statics.txt` per sensor.
// The file doubles as the pipeline checkpoint: the last recorded window start
// marks where the next run resumes.
package statslog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tame-insitu/sensor-daily-stats/internal/daily"
)

var (
	// ErrNotFound is returned when a sensor has no statistics log yet.
	ErrNotFound = errors.New("no statistics log for sensor")

	// ErrCorruptLog is returned when the existing log cannot be trusted as a
	// checkpoint: a partial final line or an unparseable date field. Treating
	// such a log as empty would risk duplicate rows, so it is fatal for the
	// sensor's run.
	ErrCorruptLog = errors.New("statistics log is corrupt")
)

// FileLog stores one statistics file per sensor under dir.
type FileLog struct {
	dir string
}

// New creates a FileLog writing into dir.
func New(dir string) *FileLog {
	return &FileLog{dir: dir}
}

// Path returns the sensor's statistics file path.
func (l *FileLog) Path(sensor string) string {
	return filepath.Join(l.dir, sensor+"_daily_statics.txt")
}

// Header returns the column list: date, five statistics per variable, then
// the expected/available counts.
func Header() []string {
	header := []string{"date"}
	for _, v := range daily.Variables {
		header = append(header,
			"mean_"+v, "min_"+v, "max_"+v, "std_"+v, "median_"+v)
	}
	return append(header, "expected_count", "available_count")
}

// Ensure creates the sensor's log with a header row if it does not exist.
func (l *FileLog) Ensure(sensor string) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}

	path := l.Path(sensor)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header()); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Checkpoint returns the last recorded window start. found is false when the
// file is absent, empty, or header-only; those three cases are equivalent.
func (l *FileLog) Checkpoint(sensor string) (time.Time, bool, error) {
	data, err := os.ReadFile(l.Path(sensor))
	if os.IsNotExist(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if len(data) == 0 {
		return time.Time{}, false, nil
	}

	if data[len(data)-1] != '\n' {
		return time.Time{}, false, fmt.Errorf("%w: partial final line", ErrCorruptLog)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) <= 1 {
		// Header only.
		return time.Time{}, false, nil
	}

	last := lines[len(lines)-1]
	comma := strings.IndexByte(last, ',')
	if comma < 0 {
		return time.Time{}, false, fmt.Errorf("%w: malformed final row", ErrCorruptLog)
	}

	ts, err := time.Parse(time.RFC3339, last[:comma])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: bad date in final row: %v", ErrCorruptLog, err)
	}
	return ts, true, nil
}

// Append writes the records to the end of the sensor's log. Existing content
// is never rewritten or reordered.
func (l *FileLog) Append(sensor string, recs []daily.Record) error {
	if len(recs) == 0 {
		return nil
	}

	f, err := os.OpenFile(l.Path(sensor), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, rec := range recs {
		if err := w.Write(formatRecord(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Read parses the sensor's log and returns the records whose window start
// falls within [from, to].
func (l *FileLog) Read(sensor string, from, to time.Time) ([]daily.Record, error) {
	f, err := os.Open(l.Path(sensor))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse statistics log: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[name] = i
	}

	var recs []daily.Record
	for _, row := range rows[1:] {
		rec, err := parseRecord(row, cols)
		if err != nil {
			return nil, fmt.Errorf("parse statistics log: %w", err)
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func formatRecord(rec daily.Record) []string {
	row := make([]string, 0, len(Header()))
	row = append(row, rec.Date.Format(time.RFC3339))
	for _, v := range daily.Variables {
		vs := rec.Stats[v]
		row = append(row,
			formatStat(vs.Mean),
			formatStat(vs.Min),
			formatStat(vs.Max),
			formatStat(vs.Std),
			formatStat(vs.Median),
		)
	}
	expected := ""
	if rec.ExpectedCount != nil {
		expected = strconv.Itoa(*rec.ExpectedCount)
	}
	return append(row, expected, strconv.Itoa(rec.AvailableCount))
}

func formatStat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func parseRecord(row []string, cols map[string]int) (daily.Record, error) {
	field := func(name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	date, err := time.Parse(time.RFC3339, field("date"))
	if err != nil {
		return daily.Record{}, fmt.Errorf("bad date %q: %w", field("date"), err)
	}

	rec := daily.Record{
		Date:  date,
		Stats: make(map[string]daily.VarStats, len(daily.Variables)),
	}

	for _, v := range daily.Variables {
		rec.Stats[v] = daily.VarStats{
			Mean:   parseStat(field("mean_" + v)),
			Min:    parseStat(field("min_" + v)),
			Max:    parseStat(field("max_" + v)),
			Std:    parseStat(field("std_" + v)),
			Median: parseStat(field("median_" + v)),
		}
	}

	if s := field("expected_count"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			rec.ExpectedCount = &n
		}
	}
	if s := field("available_count"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			rec.AvailableCount = n
		}
	}
	return rec, nil
}

func parseStat(s string) *float64 {
	if s == "" {
		return nil
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		return &x
	}
	return nil
}

package statslog

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tame-insitu/sensor-daily-stats/internal/daily"
)

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }

func record(start time.Time, co float64, expected *int, available int) daily.Record {
	stats := make(map[string]daily.VarStats, len(daily.Variables))
	for _, v := range daily.Variables {
		stats[v] = daily.VarStats{}
	}
	stats["co"] = daily.VarStats{Mean: f(co), Min: f(co), Max: f(co), Median: f(co)}
	return daily.Record{
		Date:           start,
		Stats:          stats,
		ExpectedCount:  expected,
		AvailableCount: available,
	}
}

func TestEnsure_CreatesHeaderOnlyFile(t *testing.T) {
	l := New(t.TempDir())

	if err := l.Ensure("MOD1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(l.Path("MOD1"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "date,mean_co,min_co,max_co,std_co,median_co,") {
		t.Errorf("unexpected header start: %q", content[:60])
	}
	if !strings.HasSuffix(strings.TrimRight(content, "\n"), "expected_count,available_count") {
		t.Errorf("header does not end with count columns: %q", content)
	}
	if strings.Count(content, "\n") != 1 {
		t.Errorf("expected header only, got %q", content)
	}

	// A second Ensure must not touch the file.
	if err := l.Ensure("MOD1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, _ := os.ReadFile(l.Path("MOD1"))
	if string(again) != content {
		t.Error("Ensure rewrote an existing file")
	}
}

func TestCheckpoint_AbsentAndHeaderOnlyAreEquivalent(t *testing.T) {
	l := New(t.TempDir())

	if _, found, err := l.Checkpoint("MOD1"); err != nil || found {
		t.Fatalf("absent log: found=%v err=%v, want false, nil", found, err)
	}

	if err := l.Ensure("MOD1"); err != nil {
		t.Fatal(err)
	}
	if _, found, err := l.Checkpoint("MOD1"); err != nil || found {
		t.Fatalf("header-only log: found=%v err=%v, want false, nil", found, err)
	}
}

func TestAppendAndCheckpoint(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Ensure("MOD1"); err != nil {
		t.Fatal(err)
	}

	w1 := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	w2 := w1.Add(24 * time.Hour)

	if err := l.Append("MOD1", []daily.Record{
		record(w1, 1.5, n(1440), 1400),
		record(w2, 2.5, nil, 0),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ts, found, err := l.Checkpoint("MOD1")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v, want true, nil", found, err)
	}
	if !ts.Equal(w2) {
		t.Errorf("checkpoint = %v, want %v", ts, w2)
	}
}

func TestAppend_NeverRewritesExistingContent(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Ensure("MOD1"); err != nil {
		t.Fatal(err)
	}

	w1 := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	if err := l.Append("MOD1", []daily.Record{record(w1, 1.5, n(1440), 1400)}); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(l.Path("MOD1"))

	if err := l.Append("MOD1", []daily.Record{record(w1.Add(24*time.Hour), 2.5, n(1440), 10)}); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(l.Path("MOD1"))

	if !strings.HasPrefix(string(after), string(before)) {
		t.Error("append modified existing content")
	}
}

func TestAppend_SerializesAbsentFieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	if err := l.Ensure("MOD1"); err != nil {
		t.Fatal(err)
	}

	w1 := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	rec := record(w1, 1.2345, nil, 0)
	if err := l.Append("MOD1", []daily.Record{rec}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(l.Path("MOD1"))
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	fields := strings.Split(lines[1], ",")
	wantFields := 1 + len(daily.Variables)*5 + 2
	if len(fields) != wantFields {
		t.Fatalf("row has %d fields, want %d", len(fields), wantFields)
	}
	if fields[0] != "2025-01-01T06:00:00Z" {
		t.Errorf("date field = %q", fields[0])
	}
	if fields[1] != "1.234" && fields[1] != "1.235" {
		t.Errorf("mean_co = %q, want 3-decimal rendering", fields[1])
	}
	// std_co is absent (single value), expected_count is absent.
	if fields[4] != "" {
		t.Errorf("std_co = %q, want empty", fields[4])
	}
	if fields[wantFields-2] != "" {
		t.Errorf("expected_count = %q, want empty", fields[wantFields-2])
	}
	if fields[wantFields-1] != "0" {
		t.Errorf("available_count = %q, want 0", fields[wantFields-1])
	}
}

func TestCheckpoint_PartialFinalLineIsCorrupt(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Ensure("MOD1"); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-append: no trailing newline.
	fh, err := os.OpenFile(l.Path("MOD1"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fh.WriteString("2025-01-01T06:00:00Z,1.0,1.0"); err != nil {
		t.Fatal(err)
	}
	fh.Close()

	_, _, err = l.Checkpoint("MOD1")
	if !errors.Is(err, ErrCorruptLog) {
		t.Fatalf("err = %v, want ErrCorruptLog", err)
	}
}

func TestCheckpoint_BadDateIsCorrupt(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Ensure("MOD1"); err != nil {
		t.Fatal(err)
	}

	fh, err := os.OpenFile(l.Path("MOD1"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fh.WriteString("garbage,1.0,2.0\n"); err != nil {
		t.Fatal(err)
	}
	fh.Close()

	_, _, err = l.Checkpoint("MOD1")
	if !errors.Is(err, ErrCorruptLog) {
		t.Fatalf("err = %v, want ErrCorruptLog", err)
	}
}

func TestRead_FiltersByRange(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Ensure("MOD1"); err != nil {
		t.Fatal(err)
	}

	w1 := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	var recs []daily.Record
	for i := 0; i < 5; i++ {
		recs = append(recs, record(w1.Add(time.Duration(i)*24*time.Hour), float64(i), n(1440), 1440))
	}
	if err := l.Append("MOD1", recs); err != nil {
		t.Fatal(err)
	}

	got, err := l.Read("MOD1", w1.Add(24*time.Hour), w1.Add(3*24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records in range, got %d", len(got))
	}
	if got[0].Stats["co"].Mean == nil || *got[0].Stats["co"].Mean != 1 {
		t.Errorf("first record mean_co = %v, want 1", got[0].Stats["co"].Mean)
	}
	if got[0].ExpectedCount == nil || *got[0].ExpectedCount != 1440 {
		t.Errorf("expected_count = %v, want 1440", got[0].ExpectedCount)
	}
}

func TestRead_MissingLog(t *testing.T) {
	l := New(t.TempDir())
	if _, err := l.Read("MOD9", time.Time{}, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tame-insitu/sensor-daily-stats/internal/daily"
	"github.com/tame-insitu/sensor-daily-stats/internal/statslog"
	"github.com/tame-insitu/sensor-daily-stats/internal/store"
)

func newTestApp(t *testing.T) (*fiber.App, *store.MemoryStore, *statslog.FileLog) {
	t.Helper()

	app := fiber.New()
	status := store.NewMemoryStore()
	fileLog := statslog.New(t.TempDir())
	RegisterRoutes(app, status, fileLog)
	return app, status, fileLog
}

// TestStatsRangeValidation verifies that the stats endpoint enforces the
// required from/to query parameters and their ordering.
func TestStatsRangeValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	// Missing range parameters should return 400.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/1/stats", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// to before from should also return 400.
	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/sensors/1/stats?from=2025-01-02T00:00:00Z&to=2025-01-01T00:00:00Z", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestSensorStatusEndpoints(t *testing.T) {
	app, status, _ := newTestApp(t)

	status.SaveResult(daily.RunResult{
		Sensor:          "1",
		RunID:           "run-1",
		CompletedAt:     time.Now().UTC(),
		WindowsAppended: 3,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var res daily.RunResult
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if res.WindowsAppended != 3 {
		t.Errorf("windows_appended = %d, want 3", res.WindowsAppended)
	}

	// Unknown sensor should return 404.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sensors/99", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.StatusCode)
	}
}

func TestStatsEndpointReadsLog(t *testing.T) {
	app, _, fileLog := newTestApp(t)

	if err := fileLog.Ensure("1"); err != nil {
		t.Fatal(err)
	}
	w1 := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	mean := 2.5
	expected := 1440
	stats := make(map[string]daily.VarStats)
	for _, v := range daily.Variables {
		stats[v] = daily.VarStats{}
	}
	stats["co"] = daily.VarStats{Mean: &mean, Min: &mean, Max: &mean, Median: &mean}
	if err := fileLog.Append("1", []daily.Record{{
		Date:           w1,
		Stats:          stats,
		ExpectedCount:  &expected,
		AvailableCount: 1400,
	}}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/sensors/1/stats?from=2025-01-01T00:00:00Z&to=2025-01-02T00:00:00Z", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Records []daily.Record `json:"records"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(payload.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(payload.Records))
	}
	if payload.Records[0].AvailableCount != 1400 {
		t.Errorf("available_count = %d, want 1400", payload.Records[0].AvailableCount)
	}

	// A sensor with no log should return 404.
	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/sensors/9/stats?from=2025-01-01T00:00:00Z&to=2025-01-02T00:00:00Z", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.StatusCode)
	}
}

package daily

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tame-insitu/sensor-daily-stats/internal/logging"
	"github.com/tame-insitu/sensor-daily-stats/internal/metrics"
)

// ServiceConfig holds the windowing parameters and fan-out limit for the
// pipeline. It is immutable once the service is constructed.
type ServiceConfig struct {
	StartDate  time.Time
	AnchorHour int
	Timezone   *time.Location
	MaxWorkers int

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Service runs the daily-statistics pipeline: for each sensor it merges the
// raw files, resolves the checkpoint from the existing log, aggregates the
// pending windows and appends the results.
type Service struct {
	cfg    ServiceConfig
	source Source
	log    StatsLog
	status StatusStore
	logger *logging.Logger

	now func() time.Time
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig, source Source, statsLog StatsLog, status StatusStore, logger *logging.Logger) *Service {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		cfg:    cfg,
		source: source,
		log:    statsLog,
		status: status,
		logger: logger,
		now:    now,
	}
}

// Run processes every known sensor once. Sensors are independent: each is
// handled on its own worker and a failure is recorded in the status store
// without affecting the others.
func (s *Service) Run(ctx context.Context) error {
	runID := uuid.NewString()
	now := s.now()

	sensors, err := s.source.Sensors()
	if err != nil {
		return fmt.Errorf("list sensors: %w", err)
	}

	s.logger.Info("run %s: processing %d sensors", runID, len(sensors))
	metrics.PipelineRuns.Inc()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxWorkers)

	for _, sensor := range sensors {
		sensor := sensor
		g.Go(func() error {
			res := s.ProcessSensor(ctx, sensor, now)
			res.RunID = runID

			if res.Error != "" {
				s.logger.Error("run %s: sensor %s failed: %s", runID, sensor, res.Error)
				metrics.SensorFailures.Inc()
			} else {
				metrics.SensorsProcessed.Inc()
			}
			if s.status != nil {
				s.status.SaveResult(res)
			}
			return nil
		})
	}
	// Workers never return errors; failures are per-sensor results.
	_ = g.Wait()

	metrics.LastRunTimestamp.SetToCurrentTime()
	s.logger.Info("run %s: complete", runID)
	return nil
}

// ProcessSensor runs the four pipeline steps for a single sensor. The steps
// are strictly sequential; records are appended in increasing window-start
// order in a single pass.
func (s *Service) ProcessSensor(ctx context.Context, sensor string, now time.Time) RunResult {
	res := RunResult{Sensor: sensor}

	fail := func(err error) RunResult {
		res.Error = err.Error()
		res.CompletedAt = time.Now().UTC()
		return res
	}

	// The output file must exist, header included, even for a sensor with no
	// raw data and no pending windows.
	if err := s.log.Ensure(sensor); err != nil {
		return fail(fmt.Errorf("ensure statistics log: %w", err))
	}

	checkpoint, found, err := s.log.Checkpoint(sensor)
	if err != nil {
		return fail(fmt.Errorf("resolve checkpoint: %w", err))
	}

	windows := WindowStarts(s.cfg.StartDate, s.cfg.AnchorHour, s.cfg.Timezone, now)

	var pending []Window
	for _, w := range windows {
		if !found || w.Start.After(checkpoint) {
			pending = append(pending, w)
		}
	}

	if len(pending) == 0 {
		s.logger.Info("sensor %s: no new windows to process", sensor)
		res.CompletedAt = time.Now().UTC()
		return res
	}

	ds, warnings, err := s.source.Load(ctx, sensor)
	res.Warnings = warnings
	if err != nil {
		return fail(fmt.Errorf("load raw data: %w", err))
	}

	// A sensor with no raw data at all keeps a header-only log; its windows
	// stay pending until matching files appear.
	if len(ds.Readings) == 0 {
		s.logger.Info("sensor %s: no raw data; leaving log unchanged", sensor)
		res.CompletedAt = time.Now().UTC()
		return res
	}

	recs := make([]Record, 0, len(pending))
	for _, w := range pending {
		recs = append(recs, AggregateWindow(ds, w))
	}

	if err := s.log.Append(sensor, recs); err != nil {
		return fail(fmt.Errorf("append records: %w", err))
	}

	metrics.WindowsAppended.Add(float64(len(recs)))
	s.logger.Info("sensor %s: appended %d window records", sensor, len(recs))

	res.WindowsAppended = len(recs)
	res.CompletedAt = time.Now().UTC()
	return res
}

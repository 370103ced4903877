// Package metrics exposes Prometheus instrumentation for the statistics
// pipeline. Counters are incremented inline by the processing path and served
// on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Total number of pipeline invocations",
	})

	SensorsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensors_processed_total",
		Help: "Total number of per-sensor pipeline completions",
	})

	SensorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensor_failures_total",
		Help: "Total number of per-sensor pipeline failures",
	})

	WindowsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windows_appended_total",
		Help: "Total number of window records appended to statistics logs",
	})

	FilesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raw_files_loaded_total",
		Help: "Total number of raw CSV files loaded",
	})

	FilesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raw_files_skipped_total",
		Help: "Total number of raw CSV files skipped as unreadable",
	})

	RowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raw_rows_dropped_total",
		Help: "Total number of raw rows dropped for unparseable timestamps",
	})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "last_run_timestamp_seconds",
		Help: "Unix time of the last completed pipeline run",
	})
)

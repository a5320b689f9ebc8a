// Package metrics tracks pipeline health with Prometheus metrics: row counts
// per stage, cells demoted during cleaning, stage latencies, and run outcomes.
//
// # Basic Usage
//
//	metrics.RowsExtracted.WithLabelValues("banks").Add(float64(tbl.NumRows()))
//
//	timer := metrics.NewTimer()
//	runStage()
//	metrics.ObserveStage("banks", "extract", timer.Stop())
//
// Metrics are registered automatically; Serve exposes them over HTTP when a
// listen address is configured.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quarrydata/quarry/pkg/logger"
)

var (
	// RowsExtracted counts raw data rows parsed out of the source table.
	// Labels: pipeline
	RowsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_rows_extracted_total",
			Help: "Total raw rows extracted from the source table",
		},
		[]string{"pipeline"},
	)

	// RowsDropped counts rows removed by the filter stage.
	// Labels: pipeline
	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_rows_dropped_total",
			Help: "Total rows dropped by key exclusion or missing values",
		},
		[]string{"pipeline"},
	)

	// RowsLoaded counts rows written to a sink.
	// Labels: pipeline, sink (csv/db)
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_rows_loaded_total",
			Help: "Total rows written to a sink",
		},
		[]string{"pipeline", "sink"},
	)

	// CellsDemoted counts cells the cleaner demoted to missing because the
	// text did not survive as a number.
	// Labels: pipeline
	CellsDemoted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_cells_demoted_total",
			Help: "Total cells demoted to missing during cleaning",
		},
		[]string{"pipeline"},
	)

	// StageDuration tracks how long each pipeline stage takes.
	// Labels: pipeline, stage
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quarry_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"pipeline", "stage"},
	)

	// RunsTotal counts completed runs by outcome.
	// Labels: pipeline, status (success/failed)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarry_runs_total",
			Help: "Total pipeline runs by status",
		},
		[]string{"pipeline", "status"},
	)
)

// ObserveStage records one stage duration.
func ObserveStage(pipeline, stage string, d time.Duration) {
	StageDuration.WithLabelValues(pipeline, stage).Observe(d.Seconds())
}

// Timer measures an operation duration. It captures the start time on
// creation and calculates elapsed time on Stop.
type Timer struct {
	start time.Time
}

// NewTimer creates a timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. A timer can be stopped
// multiple times, each returning the total elapsed time.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Serve exposes /metrics on the given address in the background and returns
// the server so the caller can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

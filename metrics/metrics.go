// Package metrics exposes pipeline and session counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maprank_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"engine", "phase", "code"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maprank_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"engine"},
	)

	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maprank_recoveries_total",
			Help: "Successful runs that needed the recovery scroll",
		},
		[]string{"engine"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "maprank_active_sessions",
			Help: "Browser sessions currently running",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maprank_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)
)

// ObserveRun records one finished pipeline run. code is empty on success.
func ObserveRun(engine, phase, code string, d time.Duration, recovered bool) {
	if code == "" {
		code = "ok"
	}
	RunsTotal.WithLabelValues(engine, phase, code).Inc()
	RunDuration.WithLabelValues(engine).Observe(d.Seconds())
	if recovered {
		RecoveriesTotal.WithLabelValues(engine).Inc()
	}
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

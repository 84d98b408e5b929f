// Package metrics provides Prometheus metrics for the manifestation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationTotal counts generator calls by outcome (ok, service_error, malformed).
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pluma",
			Name:      "generation_total",
			Help:      "Total number of manifestation generations",
		},
		[]string{"slot", "type", "outcome"},
	)

	// GenerationDuration measures the completion round trip.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pluma",
			Name:      "generation_duration_seconds",
			Help:      "Duration of completion requests in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"slot"},
	)

	SweepTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pluma",
			Name:      "sweep_total",
			Help:      "Total number of completeness sweeps",
		},
		[]string{"status"},
	)

	ReplaceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pluma",
			Name:      "replace_failures_total",
			Help:      "Total number of failed slot replacements",
		},
		[]string{"slot"},
	)

	// SchedulerRunning is 1 while the sweep loop is running.
	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pluma",
			Name:      "scheduler_running",
			Help:      "Scheduler state (1 = running, 0 = stopped)",
		},
	)
)

func RecordGeneration(slot, contentType, outcome string, seconds float64) {
	GenerationTotal.WithLabelValues(slot, contentType, outcome).Inc()
	GenerationDuration.WithLabelValues(slot).Observe(seconds)
}

func RecordSweep(status string) {
	SweepTotal.WithLabelValues(status).Inc()
}

func RecordReplaceFailure(slot string) {
	ReplaceFailuresTotal.WithLabelValues(slot).Inc()
}

func SetSchedulerRunning(running bool) {
	if running {
		SchedulerRunning.Set(1)
		return
	}
	SchedulerRunning.Set(0)
}

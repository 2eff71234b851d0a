// Package metrics provides Prometheus metrics for pipeline runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autoblog"

var (
	// RunsTotal counts finished runs by terminal state.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by final state",
		},
		[]string{"state"},
	)

	// StageDuration measures how long each pipeline stage took.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// DegradedTotal counts warnings raised by a stage.
	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_total",
			Help:      "Total number of degradation warnings by stage",
		},
		[]string{"stage"},
	)

	// PublishTotal counts publish receipts.
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Total number of publish attempts by platform and status",
		},
		[]string{"platform", "status"},
	)
)

// RecordStage records one stage run and the warnings it produced.
func RecordStage(stage string, seconds float64, warnings int) {
	StageDuration.WithLabelValues(stage).Observe(seconds)
	if warnings > 0 {
		DegradedTotal.WithLabelValues(stage).Add(float64(warnings))
	}
}

// RecordRun records a finished run.
func RecordRun(state string) {
	RunsTotal.WithLabelValues(state).Inc()
}

// RecordPublish records one publish receipt.
func RecordPublish(platform, status string) {
	PublishTotal.WithLabelValues(platform, status).Inc()
}

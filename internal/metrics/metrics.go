// Package metrics provides Prometheus metrics for the tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"timetracker/internal/core/model"
	"timetracker/internal/core/stopwatch"
)

// Metrics holds the tracker collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	SessionsRecorded *prometheus.CounterVec
	TrackedSeconds   *prometheus.CounterVec
	TimerStatus      *prometheus.GaugeVec
}

// New registers the tracker collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	metrics := &Metrics{
		Registry: registry,
		SessionsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetracker",
			Name:      "sessions_recorded_total",
			Help:      "Total stopwatch sessions persisted as time entries.",
		}, []string{"task"}),
		TrackedSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetracker",
			Name:      "tracked_seconds_total",
			Help:      "Total seconds recorded in time entries.",
		}, []string{"task"}),
		TimerStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "timetracker",
			Name:      "timer_status",
			Help:      "1 for the current stopwatch status, 0 otherwise.",
		}, []string{"status"}),
	}
	registry.MustRegister(metrics.SessionsRecorded, metrics.TrackedSeconds, metrics.TimerStatus)
	metrics.SetStatus(stopwatch.StatusStopped)
	return metrics
}

// EntryRecorded implements session.Observer.
func (metrics *Metrics) EntryRecorded(entry model.TimeEntry) {
	metrics.SessionsRecorded.WithLabelValues(entry.TaskName).Inc()
	metrics.TrackedSeconds.WithLabelValues(entry.TaskName).Add(float64(entry.DurationSeconds))
}

// SetStatus marks status as the current one.
func (metrics *Metrics) SetStatus(status stopwatch.Status) {
	for _, known := range []stopwatch.Status{stopwatch.StatusStopped, stopwatch.StatusRunning, stopwatch.StatusPaused} {
		value := 0.0
		if known == status {
			value = 1
		}
		metrics.TimerStatus.WithLabelValues(string(known)).Set(value)
	}
}

// Package metrics exposes Prometheus collectors for the engine's monitors,
// adapted from the teacher's process-lifecycle metrics to the engine's
// spawn/sample/terminate lifecycle: a monitor has no restart concept, but it
// does have a wall-clock duration, a peak memory sample and exactly one
// termination reason (or none, on natural exit).
package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	regOK atomic.Bool

	monitorsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandrun",
			Subsystem: "monitor",
			Name:      "starts_total",
			Help:      "Number of monitors started.",
		}, []string{"program"},
	)
	monitorTerminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sandrun",
			Subsystem: "monitor",
			Name:      "terminations_total",
			Help:      "Number of monitor terminations, labeled by reason ('' means natural exit).",
		}, []string{"program", "reason"},
	)
	monitorWallClockSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sandrun",
			Subsystem: "monitor",
			Name:      "wall_clock_seconds",
			Help:      "Final wall_clock_time reported by completed monitors.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"program"},
	)
	monitorMemoryPeakBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sandrun",
			Subsystem: "monitor",
			Name:      "memory_peak_bytes",
			Help:      "Peak resident memory sampled across the group at report time.",
		}, []string{"program"},
	)
	activeMonitors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sandrun",
			Subsystem: "monitor",
			Name:      "active",
			Help:      "Number of monitors currently running per program name.",
		}, []string{"program"},
	)
)

// Register registers all collectors with r. Safe to call multiple times;
// calls after the first successful registration are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		monitorsStarted, monitorTerminations, monitorWallClockSeconds,
		monitorMemoryPeakBytes, activeMonitors,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving the default gatherer. The caller
// mounts it; the engine itself never starts an HTTP server.
func Handler() http.Handler { return promhttp.Handler() }

// IncMonitorStart records that a monitor for program began running.
func IncMonitorStart(program string) {
	if regOK.Load() {
		monitorsStarted.WithLabelValues(program).Inc()
		activeMonitors.WithLabelValues(program).Inc()
	}
}

// RecordTermination records a completed monitor's termination reason
// ("" for a natural exit), wall-clock duration and peak memory.
func RecordTermination(program, reason string, wallClockSeconds float64, peakMemoryBytes uint64) {
	if !regOK.Load() {
		return
	}
	monitorTerminations.WithLabelValues(program, reason).Inc()
	monitorWallClockSeconds.WithLabelValues(program).Observe(wallClockSeconds)
	monitorMemoryPeakBytes.WithLabelValues(program).Set(float64(peakMemoryBytes))
	activeMonitors.WithLabelValues(program).Dec()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectorMetrics tracks subscription detection runs.
type DetectorMetrics struct {
	runs       *prometheus.CounterVec
	duration   prometheus.Histogram
	candidates *prometheus.CounterVec
	skipped    *prometheus.CounterVec
}

// NewDetectorMetrics registers the detector metrics on the provided registerer.
func NewDetectorMetrics(reg prometheus.Registerer) *DetectorMetrics {
	if reg == nil {
		return &DetectorMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "detector",
		Name:      "runs_total",
		Help:      "Subscription detection runs by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "detector",
		Name:      "run_duration_seconds",
		Help:      "Duration of a tenant detection run in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "detector",
		Name:      "candidates_total",
		Help:      "Subscription candidates written, by cadence.",
	}, []string{"cadence"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "detector",
		Name:      "skipped_transactions_total",
		Help:      "Debits skipped by the detector, by reason.",
	}, []string{"reason"})
	reg.MustRegister(runs, duration, candidates, skipped)
	return &DetectorMetrics{
		runs:       runs,
		duration:   duration,
		candidates: candidates,
		skipped:    skipped,
	}
}

// ObserveRun records one run's outcome and duration.
func (d *DetectorMetrics) ObserveRun(outcome string, duration time.Duration) {
	if d == nil || d.runs == nil {
		return
	}
	d.runs.WithLabelValues(normalizeLabel(outcome)).Inc()
	d.duration.Observe(duration.Seconds())
}

// AddCandidates counts candidates written for a cadence.
func (d *DetectorMetrics) AddCandidates(cadence string, n int) {
	if d == nil || d.candidates == nil || n <= 0 {
		return
	}
	d.candidates.WithLabelValues(normalizeLabel(cadence)).Add(float64(n))
}

// AddSkipped counts debits the detector could not attribute.
func (d *DetectorMetrics) AddSkipped(reason string, n int) {
	if d == nil || d.skipped == nil || n <= 0 {
		return
	}
	d.skipped.WithLabelValues(normalizeLabel(reason)).Add(float64(n))
}

// Package metrics holds the Prometheus collectors for the intake pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every collector the service exports.
type Metrics struct {
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Histogram
	previewFailures prometheus.Counter
	rateLimited     prometheus.Counter
	events          *prometheus.CounterVec
	reconciled      prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facedata",
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome.",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "facedata",
			Name:      "upload_bytes",
			Help:      "Size of accepted images.",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
		previewFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facedata",
			Name:      "preview_failures_total",
			Help:      "Preview copies that could not be written.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facedata",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facedata",
			Name:      "worker_events_total",
			Help:      "Queue events handled by the worker, by result.",
		}, []string{"result"}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "facedata",
			Name:      "counter_corrections_total",
			Help:      "Student counters rewritten to match folder contents.",
		}),
	}
	reg.MustRegister(m.uploads, m.uploadBytes, m.previewFailures, m.rateLimited, m.events, m.reconciled)
	return m
}

// Upload records the outcome of one upload attempt.
func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// Accepted records the size of a stored image.
func (m *Metrics) Accepted(size int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Observe(float64(size))
}

// PreviewFailed counts a failed preview copy.
func (m *Metrics) PreviewFailed() {
	if m == nil {
		return
	}
	m.previewFailures.Inc()
}

// RateLimited counts a request rejected by the limiter.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Event records a worker result such as "ok", "invalid" or "failed".
func (m *Metrics) Event(result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(result).Inc()
}

// Corrected counts a counter rewritten by reconciliation.
func (m *Metrics) Corrected() {
	if m == nil {
		return
	}
	m.reconciled.Inc()
}

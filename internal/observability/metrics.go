package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	marksRecordedTotal      *prometheus.CounterVec
	sessionTransitionsTotal *prometheus.CounterVec
	webhookRejectionsTotal  *prometheus.CounterVec
	sweepDurationSeconds    *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used across the
// attendance API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		marksRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_marks_recorded_total",
			Help: "Total attendance marks written, by source channel and mark.",
		}, []string{"source", "mark"})

		sessionTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_session_transitions_total",
			Help: "Total session state transitions, by target state and trigger.",
		}, []string{"to", "trigger"})

		webhookRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_webhook_rejections_total",
			Help: "Total biometric webhook events rejected, by reason.",
		}, []string{"reason"})

		sweepDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_sweep_duration_seconds",
			Help:    "Duration of background sweep jobs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 5.0, 15.0, 60.0},
		}, []string{"job"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			marksRecordedTotal,
			sessionTransitionsTotal,
			webhookRejectionsTotal,
			sweepDurationSeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// MarksRecorded exposes the mark counter.
func MarksRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return marksRecordedTotal
}

// SessionTransitions exposes the transition counter.
func SessionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionTransitionsTotal
}

// WebhookRejections exposes the webhook rejection counter.
func WebhookRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return webhookRejectionsTotal
}

// SweepDuration exposes the sweep duration histogram.
func SweepDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return sweepDurationSeconds
}

// Package metrics holds the Prometheus collectors for prompt flow invocations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess             = "success"
	OutcomeInvalidInput        = "invalid_input"
	OutcomeEngineOutputInvalid = "engine_output_invalid"
	OutcomeEngineError         = "engine_error"
	OutcomeInternalError       = "internal_error"
)

var (
	FlowRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "neuraforge",
			Name:      "flow_requests_total",
			Help:      "Total number of prompt flow invocations by outcome",
		},
		[]string{"flow", "outcome"},
	)

	FlowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "neuraforge",
			Name:      "flow_duration_seconds",
			Help:      "Duration of prompt flow invocations in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"flow"},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "neuraforge",
			Name:      "upload_size_bytes",
			Help:      "Size of accepted business data uploads in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)

// ObserveFlow records one invocation of flow.
func ObserveFlow(flow, outcome string, elapsed time.Duration) {
	FlowRequests.WithLabelValues(flow, outcome).Inc()
	FlowDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ValidationsTotal   prometheus.Counter
	AdvisoryFailures   prometheus.Counter
	AdvisoryLatency    prometheus.Histogram
	RecordsCreated     prometheus.Counter
	TransitionsTotal   *prometheus.CounterVec
	TransitionFailures *prometheus.CounterVec
	LearningRecomputes prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ValidationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transferdesk_validations_total",
			Help: "Total number of ACAT validation calls",
		}),
		AdvisoryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transferdesk_advisory_failures_total",
			Help: "Advisory collaborator calls that failed or timed out",
		}),
		AdvisoryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transferdesk_advisory_latency_seconds",
			Help:    "Latency of advisory collaborator calls",
			Buckets: prometheus.DefBuckets,
		}),
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transferdesk_records_created_total",
			Help: "Tracked ACAT records created",
		}),
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transferdesk_transitions_total",
			Help: "Successful status transitions by target status",
		}, []string{"target"}),
		TransitionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transferdesk_transition_failures_total",
			Help: "Rejected status transitions by error code",
		}, []string{"code"}),
		LearningRecomputes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transferdesk_learning_recomputes_total",
			Help: "Learning snapshot recomputations",
		}),
	}
}

// ObserveAdvisoryLatency records one advisory round trip.
func (m *Metrics) ObserveAdvisoryLatency(d time.Duration) {
	m.AdvisoryLatency.Observe(d.Seconds())
}

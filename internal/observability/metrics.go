package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeview",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgeview",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	renderResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeview",
			Subsystem: "render",
			Name:      "responses_total",
			Help:      "Responses built by the renderer by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	renderBatchRecords = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "edgeview",
			Subsystem: "render",
			Name:      "batch_records",
			Help:      "Mutation records per collected batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	renderPhased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeview",
			Subsystem: "render",
			Name:      "phased_total",
			Help:      "Off-screen delivery decisions.",
		},
		[]string{"decision"},
	)
	renderAcks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeview",
			Subsystem: "render",
			Name:      "acks_total",
			Help:      "Update acknowledgments by result.",
		},
		[]string{"result"},
	)
	renderLearn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeview",
			Subsystem: "render",
			Name:      "learn_total",
			Help:      "Stateless handler learning attempts by result.",
		},
		[]string{"result"},
	)
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edgeview",
			Subsystem: "session",
			Name:      "active",
			Help:      "Live sessions in the registry.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			renderResponses,
			renderBatchRecords,
			renderPhased,
			renderAcks,
			renderLearn,
			sessionsActive,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordResponse(kind, outcome string) {
	RegisterMetrics()
	renderResponses.WithLabelValues(kind, outcome).Inc()
}

func RecordBatch(records int) {
	RegisterMetrics()
	renderBatchRecords.Observe(float64(records))
}

func RecordPhased(deferred bool) {
	RegisterMetrics()
	decision := "inline"
	if deferred {
		decision = "deferred"
	}
	renderPhased.WithLabelValues(decision).Inc()
}

func RecordAck(accepted bool) {
	RegisterMetrics()
	result := "ignored"
	if accepted {
		result = "accepted"
	}
	renderAcks.WithLabelValues(result).Inc()
}

func RecordLearn(result string) {
	RegisterMetrics()
	renderLearn.WithLabelValues(result).Inc()
}

func SetActiveSessions(n int) {
	RegisterMetrics()
	sessionsActive.Set(float64(n))
}

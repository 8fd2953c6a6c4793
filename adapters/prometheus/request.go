package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/najoast/sngo/v2/request"
)

// requestMetrics implements request.Metrics using Prometheus.
type requestMetrics struct {
	inflight      prometheus.Gauge
	started       prometheus.Counter
	responses     *prometheus.CounterVec
	responseCount prometheus.Histogram
	waitDuration  prometheus.Histogram
	abandoned     prometheus.Counter
}

// NewRequestMetrics creates a new Prometheus implementation of request.Metrics.
func NewRequestMetrics(reg prometheus.Registerer, namespace string) request.Metrics {
	return newRequestMetrics(reg, namespace)
}

func newRequestMetrics(reg prometheus.Registerer, namespace string) *requestMetrics {
	m := &requestMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_inflight",
			Help:      "Number of requests waiting for responses",
		}),

		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_started_total",
			Help:      "Total number of requests started",
		}),

		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_responses_total",
			Help:      "Total number of resolved responses",
		}, []string{"declined"}),

		responseCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_response_count",
			Help:      "Number of responses collected per request",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),

		waitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from request creation until its responses were collected",
			Buckets:   defaultBuckets,
		}),

		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_abandoned_total",
			Help:      "Total number of requests given up by their sender",
		}),
	}

	reg.MustRegister(
		m.inflight,
		m.started,
		m.responses,
		m.responseCount,
		m.waitDuration,
		m.abandoned,
	)

	return m
}

func (m *requestMetrics) RequestStarted() {
	m.started.Inc()
	m.inflight.Inc()
}

func (m *requestMetrics) ResponseResolved(declined bool) {
	m.responses.WithLabelValues(boolToStr(declined)).Inc()
}

func (m *requestMetrics) RequestCompleted(responses int, waited time.Duration) {
	m.inflight.Dec()
	m.responseCount.Observe(float64(responses))
	m.waitDuration.Observe(waited.Seconds())
}

func (m *requestMetrics) RequestAbandoned() {
	m.inflight.Dec()
}

var _ request.Metrics = (*requestMetrics)(nil)

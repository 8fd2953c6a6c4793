package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/najoast/sngo/v2/core"
)

// actorMetrics implements core.ActorMetrics using Prometheus.
type actorMetrics struct {
	messageDuration *prometheus.HistogramVec
	messagesTotal   *prometheus.CounterVec
	panicTotal      *prometheus.CounterVec
	mailboxRejected prometheus.Counter
	actorsAlive     prometheus.Gauge
}

// NewActorMetrics creates a new Prometheus implementation of ActorMetrics.
func NewActorMetrics(reg prometheus.Registerer, namespace string) core.ActorMetrics {
	return newActorMetrics(reg, namespace)
}

func newActorMetrics(reg prometheus.Registerer, namespace string) *actorMetrics {
	m := &actorMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actor_message_duration_seconds",
			Help:      "Message handling time in seconds",
			Buckets:   defaultBuckets,
		}, []string{"message_type"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_messages_total",
			Help:      "Total number of messages processed",
		}, []string{"message_type", "success"}),

		panicTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_panics_total",
			Help:      "Total number of handler panics",
		}, []string{"message_type"}),

		mailboxRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_mailbox_rejected_total",
			Help:      "Total number of deliveries rejected by a full mailbox",
		}),

		actorsAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actors_alive",
			Help:      "Number of live actors",
		}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesTotal,
		m.panicTotal,
		m.mailboxRejected,
		m.actorsAlive,
	)

	return m
}

func (m *actorMetrics) MessageProcessed(msgType string, success bool, d time.Duration) {
	m.messageDuration.WithLabelValues(msgType).Observe(d.Seconds())
	m.messagesTotal.WithLabelValues(msgType, boolToStr(success)).Inc()
}

func (m *actorMetrics) MessagePanic(msgType string) {
	m.panicTotal.WithLabelValues(msgType).Inc()
}

func (m *actorMetrics) MailboxRejected() {
	m.mailboxRejected.Inc()
}

func (m *actorMetrics) ActorsAlive(n int) {
	m.actorsAlive.Set(float64(n))
}

var _ core.ActorMetrics = (*actorMetrics)(nil)

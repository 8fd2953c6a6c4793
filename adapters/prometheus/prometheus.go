// Package prometheus provides Prometheus implementations of the actor and
// request metrics interfaces.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// AllMetrics holds the Prometheus implementations used by an actor system.
type AllMetrics struct {
	Actor   *actorMetrics
	Request *requestMetrics
}

// NewAllMetrics registers every metric of the runtime under namespace.
func NewAllMetrics(reg prometheus.Registerer, namespace string) *AllMetrics {
	return &AllMetrics{
		Actor:   newActorMetrics(reg, namespace),
		Request: newRequestMetrics(reg, namespace),
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

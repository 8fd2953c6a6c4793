package request

import "time"

//go:generate mockgen -source=metrics.go -destination=mock_metrics_test.go -package=request

// Metrics receives request table events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RequestStarted()
	ResponseResolved(declined bool)
	RequestCompleted(responses int, waited time.Duration)
	RequestAbandoned()
}

type nopMetrics struct{}

func (nopMetrics) RequestStarted()                     {}
func (nopMetrics) ResponseResolved(bool)               {}
func (nopMetrics) RequestCompleted(int, time.Duration) {}
func (nopMetrics) RequestAbandoned()                   {}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }

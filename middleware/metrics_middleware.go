package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"calldata-rpc/message"
)

// Metrics holds the per-method call counters and latency histogram.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Register once per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calldata_rpc",
			Name:      "calls_total",
			Help:      "Calls handled, by method and error kind (empty on success).",
		}, []string{"method", "kind"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "calldata_rpc",
			Name:      "call_duration_seconds",
			Help:      "Call latency by method.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"method"}),
	}
}

// Middleware records every call passing through the chain.
func (m *Metrics) Middleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			start := time.Now()
			resp := next(ctx, req)
			m.duration.WithLabelValues(req.ServiceMethod).Observe(time.Since(start).Seconds())
			m.calls.WithLabelValues(req.ServiceMethod, resp.Kind).Inc()
			return resp
		}
	}
}

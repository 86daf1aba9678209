package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's prometheus collectors. A nil *Metrics records
// nothing, so callers never have to check.
type Metrics struct {
	transitions   *prometheus.CounterVec
	ordersCreated prometheus.Counter
	excluded      prometheus.Counter
	opDuration    *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookswap",
			Name:      "order_transitions_total",
			Help:      "Committed order status transitions.",
		}, []string{"from", "to"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookswap",
			Name:      "orders_created_total",
			Help:      "Orders created by checkout.",
		}),
		excluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookswap",
			Name:      "checkout_books_excluded_total",
			Help:      "Cart books left out of checkout: unknown, not active, the buyer's own, or not exchangeable for an exchange order.",
		}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookswap",
			Name:      "engine_op_duration_seconds",
			Help:      "Engine operation latency by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.transitions, m.ordersCreated, m.excluded, m.opDuration)
	return m
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) BooksExcluded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.excluded.Add(float64(n))
}

func (m *Metrics) ObserveOp(op, result string, start time.Time) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

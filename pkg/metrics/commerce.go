package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics tracks order, payment and refund outcomes plus gateway latency.
type CommerceMetrics struct {
	orders          *prometheus.CounterVec
	payments        *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

// NewCommerceMetrics registers the commerce collectors. A nil registerer yields a no-op recorder.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Order lifecycle events by resulting status.",
	}, []string{"status"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Payment attempts by method and outcome.",
	}, []string{"method", "outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refunds_total",
		Help:      "Refund workflow transitions by stage.",
	}, []string{"stage"})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of payment gateway calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})
	reg.MustRegister(orders, payments, refunds, gatewayDuration)
	return &CommerceMetrics{
		orders:          orders,
		payments:        payments,
		refunds:         refunds,
		gatewayDuration: gatewayDuration,
	}
}

func (m *CommerceMetrics) IncOrder(status string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *CommerceMetrics) IncPayment(method, outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) IncRefund(stage string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveGateway records a gateway round trip. err decides the outcome label.
func (m *CommerceMetrics) ObserveGateway(operation string, duration time.Duration, err error) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(operation), outcome).Observe(duration.Seconds())
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hairpin"

// Checkout outcomes used as the "outcome" label.
const (
	OutcomeCreated           = "created"
	OutcomeReplayed          = "replayed"
	OutcomeRejected          = "rejected"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomePaymentFailed     = "payment_failed"
	OutcomeFatal             = "fatal"
)

type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	CheckoutAttempts   *prometheus.CounterVec
	CheckoutDuration   prometheus.Histogram
	StockCompensations *prometheus.CounterVec
	LowStockProducts   prometheus.Gauge
}

// New builds the collectors and registers them with reg. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		CheckoutAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by terminal outcome.",
		}, []string{"outcome"}),
		CheckoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "End-to-end checkout latency including the payment call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		StockCompensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "stock_compensations_total",
			Help:      "Stock restorations after a failed payment, by result.",
		}, []string{"result"}),
		LowStockProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "low_stock_products",
			Help:      "Active products at or below the low-stock threshold at the last scan.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPLatency,
		m.CheckoutAttempts,
		m.CheckoutDuration,
		m.StockCompensations,
		m.LowStockProducts,
	)
	return m
}

// ObserveCheckout records one finished checkout attempt.
func (m *Metrics) ObserveCheckout(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.CheckoutAttempts.WithLabelValues(outcome).Inc()
	m.CheckoutDuration.Observe(time.Since(started).Seconds())
}

// ObserveCompensation records a stock restoration attempt.
func (m *Metrics) ObserveCompensation(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.StockCompensations.WithLabelValues(result).Inc()
}

// SetLowStock records the size of the latest low-stock scan.
func (m *Metrics) SetLowStock(n int) {
	if m == nil {
		return
	}
	m.LowStockProducts.Set(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the given gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

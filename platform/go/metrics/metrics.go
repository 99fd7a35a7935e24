package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the HTTP and storefront collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	OrdersCreated       prometheus.Counter
	OrderTransitions    *prometheus.CounterVec
	NotificationsFailed prometheus.Counter
	Registrations       *prometheus.CounterVec
	AdmissionsDenied    *prometheus.CounterVec
}

// New registers every collector on a fresh registry under the given namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders placed at checkout",
		}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions by outcome",
		}, []string{"from", "to", "result"}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "notifications_failed_total",
			Help:      "Order notifications that could not be delivered",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "registrations_total",
			Help:      "Completed registrations by role",
		}, []string{"role"}),
		AdmissionsDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounts",
			Name:      "admissions_denied_total",
			Help:      "Session openings denied by reason",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		m.RequestCount,
		m.RequestDuration,
		m.OrdersCreated,
		m.OrderTransitions,
		m.NotificationsFailed,
		m.Registrations,
		m.AdmissionsDenied,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// OrderCreated implements the orders recorder.
func (m *Metrics) OrderCreated() { m.OrdersCreated.Inc() }

// OrderTransition implements the orders recorder.
func (m *Metrics) OrderTransition(from, to string, ok bool) {
	result := "applied"
	if !ok {
		result = "rejected"
	}
	m.OrderTransitions.WithLabelValues(from, to, result).Inc()
}

// NotificationFailed implements the orders recorder.
func (m *Metrics) NotificationFailed() { m.NotificationsFailed.Inc() }

// Registered implements the accounts recorder.
func (m *Metrics) Registered(role string) { m.Registrations.WithLabelValues(role).Inc() }

// AdmissionDenied implements the accounts recorder.
func (m *Metrics) AdmissionDenied(reason string) { m.AdmissionsDenied.WithLabelValues(reason).Inc() }

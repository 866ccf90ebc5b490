package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP request metrics for the gateway
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	denialsTotal    *prometheus.CounterVec
}

// NewMetrics registers the gateway metrics on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total HTTP requests handled, by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds, by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		denialsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_authorization_denials_total",
				Help: "Authorization denials, by reason code.",
			},
			[]string{"reason"},
		),
	}
}

// ObserveDenial counts one authorization denial by reason
func (m *Metrics) ObserveDenial(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.denialsTotal.WithLabelValues(reason).Inc()
}

// Instrument records a counter and latency observation per request. It uses
// the chi route pattern rather than the raw path to keep label cardinality
// bounded.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

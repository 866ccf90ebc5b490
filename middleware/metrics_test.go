package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(metrics.Instrument)
	r.Post("/api/query", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	counter := metrics.requestsTotal.WithLabelValues("POST", "/api/query", "403")
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestMetricsInstrumentUnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(metrics.Instrument)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	counter := metrics.requestsTotal.WithLabelValues("GET", "unmatched", "404")
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestObserveDenial(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.ObserveDenial("no_entitlement")
	metrics.ObserveDenial("no_entitlement")
	metrics.ObserveDenial("")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.denialsTotal.WithLabelValues("no_entitlement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.denialsTotal.WithLabelValues("unknown")))
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/products/{productID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/def", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncrementUsersCreated()

	called := false
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

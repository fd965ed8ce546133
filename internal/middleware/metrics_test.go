package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niabis/backend/internal/middleware"
)

func TestRequestMetrics_labelsByRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestMetrics)
	r.Get("/locations/{locationId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/locations/abc", nil))

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "niabis_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == "/locations/{locationId}" && labels["status"] == "404" {
				found = true
				assert.EqualValues(t, 1, m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.True(t, found, "expected a sample labelled with the route pattern")
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservations(t *testing.T) {
	m := New()
	m.ObserveExtraction("javbus", "success")
	m.ObserveExtraction("javbus", "success")
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCandidates("generic", 3)
	m.ObserveCandidates("generic", 0)
	m.ObserveFetch("detail", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Extractions.WithLabelValues("javbus", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CandidateLinks.WithLabelValues("generic")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FetchDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveExtraction("x", "error")
		m.ObserveCacheLookup(true)
		m.ObserveCandidates("x", 1)
		m.ObserveFetch("listing", time.Second)
	})
}

func TestHandlerServesInstruments(t *testing.T) {
	m := New()
	m.ObserveExtraction("jable", "cached")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `extractions_total{source="jable",status="cached"} 1`)
}

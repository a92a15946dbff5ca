package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSubmitted(3)
	c.RecordSubmitted(2)
	c.RecordStatusUpdate("stop")
	c.RecordAnalysis(OutcomeChecked, 300*time.Millisecond)
	c.RecordAnalysis(OutcomeError, time.Second)
	c.RecordAnalysis(OutcomeError, time.Second)
	c.RecordPageFetch(OutcomeOK)
	c.RecordStaleResponse()

	assert.Equal(t, 5.0, testutil.ToFloat64(c.linksSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statusUpdates.WithLabelValues("stop")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.analyses.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pageFetches.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.staleResponses))
	assert.Equal(t, 1, testutil.CollectAndCount(c.analysisLatency))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSubmitted(1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "linkboard_links_submitted_total 1")
}

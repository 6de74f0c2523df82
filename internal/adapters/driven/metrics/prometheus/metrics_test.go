package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveConfidence(t *testing.T) {
	m := New()

	m.ObserveConfidence("generation", 0.92, true)
	m.ObserveConfidence("generation", 0.31, false)
	m.ObserveConfidence("medical_context", 0.88, true)

	assert.InDelta(t, 1, testutil.ToFloat64(m.verdicts.WithLabelValues("generation", "true")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.verdicts.WithLabelValues("generation", "false")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.confidence))
}

func TestObserveIngestion(t *testing.T) {
	m := New()

	m.ObserveIngestion("success", 12)
	m.ObserveIngestion("already_exists", 0)
	m.ObserveIngestion("success", 3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.ingestions.WithLabelValues("success")), 0)
	assert.InDelta(t, 15, testutil.ToFloat64(m.ingestedChunks), 0)
}

func TestObserveProviderError(t *testing.T) {
	m := New()

	m.ObserveProviderError("search")
	m.ObserveProviderError("search")

	assert.InDelta(t, 2, testutil.ToFloat64(m.providerErrors.WithLabelValues("search")), 0)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRetrieval(120*time.Millisecond, 4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "logos_retrieval_duration_seconds_count 1")
	assert.Contains(t, string(body), "logos_retrieval_hits_sum 4")
}

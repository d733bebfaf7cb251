package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRecommendation(t *testing.T) {
	counter := RecommendationsTotal.WithLabelValues("happy", "request")
	before := testutil.ToFloat64(counter)

	RecordRecommendation("happy", "request", 12)

	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0.001)
}

func TestRecordDetection(t *testing.T) {
	detected := EmotionDetections.WithLabelValues("sad", "detected")
	fallback := EmotionDetections.WithLabelValues("neutral", "fallback")
	beforeDetected := testutil.ToFloat64(detected)
	beforeFallback := testutil.ToFloat64(fallback)

	RecordDetection("sad", false)
	RecordDetection("neutral", true)

	assert.InDelta(t, beforeDetected+1, testutil.ToFloat64(detected), 0.001)
	assert.InDelta(t, beforeFallback+1, testutil.ToFloat64(fallback), 0.001)
}

func TestRecordCacheLookup(t *testing.T) {
	hits := CacheLookups.WithLabelValues("hit")
	misses := CacheLookups.WithLabelValues("miss")
	beforeHits := testutil.ToFloat64(hits)
	beforeMisses := testutil.ToFloat64(misses)

	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)

	assert.InDelta(t, beforeHits+1, testutil.ToFloat64(hits), 0.001)
	assert.InDelta(t, beforeMisses+2, testutil.ToFloat64(misses), 0.001)
}

func TestRecordUpstream(t *testing.T) {
	ok := UpstreamRequests.WithLabelValues("tmdb", "popular", "success")
	failed := UpstreamRequests.WithLabelValues("tmdb", "popular", "failure")
	beforeOK := testutil.ToFloat64(ok)
	beforeFailed := testutil.ToFloat64(failed)

	RecordUpstream("tmdb", "popular", 40*time.Millisecond, nil)
	RecordUpstream("tmdb", "popular", 2*time.Second, errors.New("timeout"))

	assert.InDelta(t, beforeOK+1, testutil.ToFloat64(ok), 0.001)
	assert.InDelta(t, beforeFailed+1, testutil.ToFloat64(failed), 0.001)
}

func TestRecordHTTPRequest(t *testing.T) {
	counter := HTTPRequests.WithLabelValues("GET", "/api/v1/emotions", "200")
	before := testutil.ToFloat64(counter)

	RecordHTTPRequest("GET", "/api/v1/emotions", http.StatusOK, 3*time.Millisecond)

	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0.001)
}

func TestHandler(t *testing.T) {
	RecordRecommendation("angry", "catalog", 3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cinemood_recommendations_total")
}

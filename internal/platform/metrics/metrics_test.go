package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryExposesRequestLatency(t *testing.T) {
	r := New()
	r.ObserveRequest(http.MethodPost, "/applications", http.StatusCreated, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `fintrust_http_request_duration_seconds_count{method="POST",route="/applications",status="201"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

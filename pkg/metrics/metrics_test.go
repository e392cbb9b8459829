package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollector_RecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("POST", "/api/auth/login", 401, 20*time.Millisecond)
	c.RecordRequest("POST", "/api/auth/login", 401, 30*time.Millisecond)
	c.RecordRequest("GET", "", 404, time.Millisecond)

	body := scrape(t, reg)
	assert.Contains(t, body, `pp_http_requests_total{method="POST",route="/api/auth/login",status="401"} 2`)
	assert.Contains(t, body, `pp_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `pp_http_request_duration_seconds_count{method="POST",route="/api/auth/login"} 2`)
}

func TestCollector_AuthAndBreaker(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthEvent("login", true)
	c.RecordAuthEvent("login", false)
	c.RecordAuthEvent("login", false)
	c.RecordBreakerState("inference", 1)

	body := scrape(t, reg)
	assert.Contains(t, body, `pp_auth_events_total{action="login",outcome="failure"} 2`)
	assert.Contains(t, body, `pp_auth_events_total{action="login",outcome="success"} 1`)
	assert.Contains(t, body, `pp_circuit_breaker_state{name="inference"} 1`)
}

func TestNewCollector_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}

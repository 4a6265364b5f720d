package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/shortcourse-api/internal/service"
)

type staticReadiness bool

func (r staticReadiness) Ready() bool { return bool(r) }

func TestMetricsHandlerReady(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/health/ready", nil, nil)
	NewMetricsHandler(nil, staticReadiness(false)).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/health/ready", nil, nil)
	NewMetricsHandler(nil, staticReadiness(true)).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.SetSubmissionCount(4)
	c, rec := newTestContext(http.MethodGet, "/metrics", nil, nil)

	NewMetricsHandler(metrics, nil).Prometheus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "submissions"))
}

func TestMetricsHandlerSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordSourceLoad("sample", "served")
	c, rec := newTestContext(http.MethodGet, "/metrics/summary", nil, adminClaims())

	NewMetricsHandler(metrics, nil).Summary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sample:served":1`)
}

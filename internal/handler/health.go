package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/pkg/health"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/pool"
)

type HealthChecker interface {
	CheckAll(ctx context.Context) health.Report
}

// UpstreamStats reports call outcomes per outbound upstream.
type UpstreamStats interface {
	GetHealthStats() map[string]pool.BackendHealth
}

type HealthHandler struct {
	checker   HealthChecker
	upstreams UpstreamStats
	timeout   time.Duration
}

type HealthCheckResponse struct {
	Status    health.Status                 `json:"status"`
	Version   string                        `json:"version"`
	Timestamp time.Time                     `json:"timestamp"`
	Checks    map[string]health.CheckResult `json:"checks"`
	Upstreams map[string]pool.BackendHealth `json:"upstreams,omitempty"`
}

// NewHealthHandler builds the handler. upstreams may be nil.
func NewHealthHandler(checker HealthChecker, upstreams UpstreamStats) *HealthHandler {
	return &HealthHandler{checker: checker, upstreams: upstreams, timeout: 5 * time.Second}
}

// HealthCheck runs every dependency check. Only a failing critical
// dependency turns the response into a 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	report := h.checker.CheckAll(ctx)

	statusCode := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	logger.GetLogger().Debug("Health check performed",
		zap.String("overall_status", report.Status.String()),
		zap.Int("status_code", statusCode),
	)

	resp := HealthCheckResponse{
		Status:    report.Status,
		Version:   constants.AppVersion,
		Timestamp: report.Timestamp,
		Checks:    report.Checks,
	}
	if h.upstreams != nil {
		resp.Upstreams = h.upstreams.GetHealthStats()
	}

	c.JSON(statusCode, resp)
}

// BasicHealth returns a simple health check (for load balancers)
func (h *HealthHandler) BasicHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   constants.AppVersion,
		"timestamp": time.Now(),
	})
}

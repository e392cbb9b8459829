package middleware

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/pkg/logger"
)

const slowRequestThreshold = 2 * time.Second

// LoggingMiddleware writes one access log line per request through zap.
func LoggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			fields := []zap.Field{
				zap.String("method", param.Method),
				zap.String("path", param.Path),
				zap.Int("status_code", param.StatusCode),
				zap.Int64("latency_ms", param.Latency.Milliseconds()),
				zap.String("client_ip", param.ClientIP),
				zap.String("user_agent", param.Request.UserAgent()),
			}
			if requestID, ok := param.Keys[constants.GinKeyRequestID].(string); ok {
				fields = append(fields, zap.String("request_id", requestID))
			}

			switch {
			case param.StatusCode >= http.StatusInternalServerError:
				logger.GetLogger().Error("HTTP request", append(fields, zap.String("error", param.ErrorMessage))...)
			case param.Latency > slowRequestThreshold:
				logger.GetLogger().Warn("Slow request detected", fields...)
			default:
				logger.GetLogger().Info("HTTP request", fields...)
			}

			return ""
		},
		Output:    io.Discard,
		SkipPaths: []string{"/metrics"},
	})
}

// RecoveryMiddleware recovers from panics and logs them
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.LogPanic(recovered,
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)

		c.AbortWithStatusJSON(http.StatusInternalServerError, constants.BuildErrorResponse(constants.MsgInternalError, nil))
	})
}

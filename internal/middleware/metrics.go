package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/personality-predictor/backend/pkg/metrics"
)

// Metrics records request count and latency by route template.
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rec.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

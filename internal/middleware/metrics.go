package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradegate-bot/tradegate/internal/service"
)

// Metrics records request count and latency per route. The route template is
// used rather than the raw path so IDs don't explode the label space.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/pkg/metrics"
)

// MetricsMiddleware records request counts and latency per route template.
// Unmatched paths are folded into one label to keep cardinality bounded.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"flipball-backend/internal/monitoring"
)

// RequestMetrics counts requests by route template so unmatched paths share one label.
func RequestMetrics(m *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.HTTPRequests.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}

package server

import (
	"github.com/gin-gonic/gin"
	obsmetrics "github.com/smallbiznis/partnerpayout/internal/observability/metrics"
)

// HTTPMetrics counts requests by route template, never by raw path.
func HTTPMetrics(m *obsmetrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status())
	}
}

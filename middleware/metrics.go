package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/dashboard/metrics"
)

// Metrics counts requests per matched route and status code
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursetrack-api/internal/service"
)

// unmatchedRoute labels requests that hit no route, keeping raw URLs out of
// the label set.
const unmatchedRoute = "unmatched"

// Metrics records request count and latency per route template. Upload
// sizes are observed for POST bodies. Routes listed in skip (probes, the
// scrape endpoint) are not recorded.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, ok := skipped[route]; ok && route != "" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
			metricsSvc.ObserveUploadSize(route, c.Request.ContentLength)
		}
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/observability"
)

const unmatchedRoute = "unmatched"

var probeRoutes = map[string]bool{
	"/healthcheck": true,
	"/readyz":      true,
}

// Metrics records request counts and latency per route template. Probe
// routes are not counted; paths that match no route share one label so
// scanners cannot grow the label set.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if probeRoutes[route] {
			c.Next()
			return
		}

		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		if route == "" {
			route = unmatchedRoute
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

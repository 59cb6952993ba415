package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/platform/ctxutil"
	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

// RequestLogger writes one access line per request. Successful probes are
// skipped; the level follows the status class.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if probeRoutes[route] && status < 400 {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		fields := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if id, ok := ctxutil.APIKeyID(c.Request.Context()); ok {
			fields = append(fields, "api_key_id", id)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

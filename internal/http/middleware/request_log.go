package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

// RequestLogger writes one line per request at a level picked from the
// status: 5xx error, 4xx warn, otherwise info. Health probes log at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := append([]interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil && td.LearnerID != "" {
			fields = append(fields, "learner_id", td.LearnerID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case route == "/healthcheck":
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

// AttachTraceContext puts request correlation ids on the request context and
// echoes them as response headers. The trace id prefers the active otel span
// over a client-supplied header.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		td := &ctxutil.TraceData{
			RequestID: headerOr(c, HeaderRequestID, uuid.NewString),
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			td.TraceID = sc.TraceID().String()
		} else {
			td.TraceID = headerOr(c, HeaderTraceID, uuid.NewString)
		}
		if strings.HasPrefix(c.FullPath(), "/api/learners/") {
			td.LearnerID = strings.TrimSpace(c.Param("id"))
		}
		span.SetAttributes(attribute.String("http.request_id", td.RequestID))

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Header(HeaderTraceID, td.TraceID)
		c.Header(HeaderRequestID, td.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name string, gen func() string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return gen()
}

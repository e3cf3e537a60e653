package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/neurobridge-psychometrics/internal/services")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// logFor tags log with the request ids carried on ctx.
func logFor(ctx context.Context, log *logger.Logger) *logger.Logger {
	if fields := ctxutil.LogFields(ctx); len(fields) > 0 {
		return log.With(fields...)
	}
	return log
}

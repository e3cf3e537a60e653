package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries the correlation ids of the request that started a call.
type TraceData struct {
	TraceID   string
	RequestID string
	LearnerID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the trace and request ids on ctx as logger key/value
// pairs, skipping empty ones. LearnerID is left to callers that log it.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	return out
}

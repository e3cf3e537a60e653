package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string

	Enabled     bool
	Exporter    string
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

// LoadOtelConfig reads the OTEL_* environment. Without an OTLP endpoint the
// exporter falls back to stdout.
func LoadOtelConfig(serviceName, environment, version string) OtelConfig {
	cfg := OtelConfig{
		ServiceName: strings.TrimSpace(serviceName),
		Environment: strings.TrimSpace(environment),
		Version:     strings.TrimSpace(version),
		Enabled:     envutil.Bool("OTEL_ENABLED", false),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Headers:     parseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SampleRatio: clampRatio(envutil.Float("OTEL_SAMPLER_RATIO", 0.1)),
	}
	cfg.Exporter = ExporterStdout
	if cfg.Endpoint != "" {
		cfg.Exporter = ExporterOTLP
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "psychometrics"
	}
	return cfg
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider once. The returned shutdown
// func is nil when tracing is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		res, err := resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(cfg.ServiceName),
				semconv.ServiceVersionKey.String(cfg.Version),
				attribute.String("deployment.environment", cfg.Environment),
			),
		)
		if err != nil && log != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
			sdktrace.WithResource(res),
		}
		exporter, err := newTraceExporter(ctx, cfg)
		if err != nil {
			if log != nil {
				log.Warn("otel exporter init failed; spans will be dropped", "exporter", cfg.Exporter, "error", err)
			}
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		if log != nil {
			log.Info("otel tracing initialized", "service", cfg.ServiceName, "exporter", cfg.Exporter, "sample_ratio", cfg.SampleRatio)
		}
	})
	return otelShutdown
}

func newTraceExporter(ctx context.Context, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter != ExporterOTLP {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

func clampRatio(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// parseHeaders reads "k1=v1,k2=v2"; malformed pairs are skipped.
func parseHeaders(raw string) map[string]string {
	var headers map[string]string
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		if headers == nil {
			headers = map[string]string{}
		}
		headers[key] = val
	}
	return headers
}

package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc , bad, =x, team=psy ")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "psy" {
		t.Fatalf("parseHeaders: %v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestLoadOtelConfig(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_SAMPLER_RATIO", "4")

	cfg := LoadOtelConfig("", "test", "v1")
	if !cfg.Enabled || cfg.Exporter != ExporterOTLP {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("sample ratio should clamp to 1, got %v", cfg.SampleRatio)
	}
	if cfg.ServiceName != "psychometrics" {
		t.Fatalf("default service name: %q", cfg.ServiceName)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if got := LoadOtelConfig("svc", "", "").Exporter; got != ExporterStdout {
		t.Fatalf("exporter without endpoint: %q", got)
	}
}

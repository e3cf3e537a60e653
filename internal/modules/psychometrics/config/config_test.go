package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("embedded config invalid: %v", err)
	}
	if cfg.Attention.Capacity != 20 {
		t.Fatalf("expected context capacity 20, got %d", cfg.Attention.Capacity)
	}
	if cfg.Calibration.MinResponses != 10 {
		t.Fatalf("expected calibration minimum 10, got %d", cfg.Calibration.MinResponses)
	}
	if cfg.Recalibration.WeeklyStaleAfter != 7*24*time.Hour {
		t.Fatalf("expected weekly stale window 168h, got %s", cfg.Recalibration.WeeklyStaleAfter)
	}
	if cfg.CPI.TrendMargin != 5 {
		t.Fatalf("expected trend margin 5, got %v", cfg.CPI.TrendMargin)
	}
}

func TestValidate_RejectsOverlappingHeads(t *testing.T) {
	cfg := Default()
	cfg.Attention.Heads = []HeadConfig{
		{Name: "a", Features: []string{FeatureDifficulty}},
		{Name: "b", Features: []string{FeatureDifficulty, FeatureTimeOfDay}},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "share feature") {
		t.Fatalf("expected overlapping head error, got %v", err)
	}
}

func TestValidate_RejectsUnknownCalibrator(t *testing.T) {
	cfg := Default()
	cfg.Calibration.Mode = "bayesian"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown calibrator mode")
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	if err := os.WriteFile(path, []byte("cpi:\n  drift_threshold: 0.2\nattention:\n  top_k: 5\n"), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("PSYCHOMETRICS_CALIBRATOR", "mock")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CPI.DriftThreshold != 0.2 {
		t.Fatalf("expected drift threshold override 0.2, got %v", cfg.CPI.DriftThreshold)
	}
	if cfg.Attention.TopK != 5 {
		t.Fatalf("expected top_k override 5, got %d", cfg.Attention.TopK)
	}
	if cfg.Attention.Capacity != 20 {
		t.Fatalf("expected untouched capacity to keep default, got %d", cfg.Attention.Capacity)
	}
	if cfg.Calibration.Mode != CalibratorMock {
		t.Fatalf("expected env calibrator override, got %q", cfg.Calibration.Mode)
	}
}

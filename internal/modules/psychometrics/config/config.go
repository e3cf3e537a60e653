package config

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
)

const configPathEnv = "PSYCHOMETRICS_CONFIG_YAML"

//go:embed psychometrics.yaml
var defaultFS embed.FS

const (
	CalibratorStatistical = "statistical"
	CalibratorMock        = "mock"
)

// Feature names shared by attention weights and head definitions.
const (
	FeatureSimulationType    = "simulation_type"
	FeatureDifficulty        = "difficulty"
	FeatureCompetencies      = "competencies"
	FeatureTimeOfDay         = "time_of_day"
	FeatureSessionLength     = "session_length"
	FeatureRecentPerformance = "recent_performance"
)

var AllFeatures = []string{
	FeatureSimulationType,
	FeatureDifficulty,
	FeatureCompetencies,
	FeatureTimeOfDay,
	FeatureSessionLength,
	FeatureRecentPerformance,
}

type Config struct {
	Version       int                 `yaml:"version"`
	Model         ModelConfig         `yaml:"model"`
	Ability       AbilityConfig       `yaml:"ability"`
	Calibration   CalibrationConfig   `yaml:"calibration"`
	Difficulty    DifficultyConfig    `yaml:"difficulty"`
	Attention     AttentionConfig     `yaml:"attention"`
	CPI           CPIConfig           `yaml:"cpi"`
	Recalibration RecalibrationConfig `yaml:"recalibration"`
}

// ModelConfig holds the fixed 3PL parameters used when an item has no calibration.
type ModelConfig struct {
	Discrimination float64 `yaml:"discrimination"`
	Guessing       float64 `yaml:"guessing"`
}

type AbilityConfig struct {
	MinResponses       int     `yaml:"min_responses"`
	ReliableMinSamples int     `yaml:"reliable_min_samples"`
	ReliableMaxSE      float64 `yaml:"reliable_max_se"`
	MaxSE              float64 `yaml:"max_se"`
	HistoryLimit       int     `yaml:"history_limit"`
	ResponseWindow     int     `yaml:"response_window"`
}

type CalibrationConfig struct {
	Mode         string `yaml:"mode"`
	MinResponses int    `yaml:"min_responses"`
}

type DifficultyConfig struct {
	Offset        float64 `yaml:"offset"`
	VeryEasyBelow float64 `yaml:"very_easy_below"`
	EasyBelow     float64 `yaml:"easy_below"`
	MediumBelow   float64 `yaml:"medium_below"`
	HardBelow     float64 `yaml:"hard_below"`
}

type AttentionConfig struct {
	Temperature         float64            `yaml:"temperature"`
	TopK                int                `yaml:"top_k"`
	Capacity            int                `yaml:"capacity"`
	DifficultyScale     float64            `yaml:"difficulty_scale"`
	SessionScaleMinutes float64            `yaml:"session_scale_minutes"`
	FeatureWeights      map[string]float64 `yaml:"feature_weights"`
	Heads               []HeadConfig       `yaml:"heads"`
}

type HeadConfig struct {
	Name     string   `yaml:"name"`
	Features []string `yaml:"features"`
}

type CPIConfig struct {
	SmoothingAlpha    float64  `yaml:"smoothing_alpha"`
	DriftThreshold    float64  `yaml:"drift_threshold"`
	ConsistencyWindow int      `yaml:"consistency_window"`
	GrowthWindow      int      `yaml:"growth_window"`
	// Trends need 2*TrendWindow scores; shorter series are stable.
	TrendWindow       int      `yaml:"trend_window"`
	TrendMargin       float64  `yaml:"trend_margin"`
	AreasLimit        int      `yaml:"areas_limit"`
	EventTypes        []string `yaml:"event_types"`
}

type RecalibrationConfig struct {
	WeeklyStaleAfter time.Duration `yaml:"weekly_stale_after"`
	WeeklyLimit      int           `yaml:"weekly_limit"`
	DailyLimit       int           `yaml:"daily_limit"`
	Concurrency      int           `yaml:"concurrency"`
}

// Default returns the embedded configuration. It panics only if the embedded
// file is malformed, which is a build defect.
func Default() Config {
	raw, err := defaultFS.ReadFile("psychometrics.yaml")
	if err != nil {
		panic(fmt.Sprintf("psychometrics config: embedded file: %v", err))
	}
	cfg, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("psychometrics config: embedded file: %v", err))
	}
	return cfg
}

func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("psychometrics config: parse: %w", err)
	}
	return cfg, nil
}

// Load reads the override file named by PSYCHOMETRICS_CONFIG_YAML (falling back
// to the embedded defaults), applies env overrides and validates the result.
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("psychometrics config: read %s: %w", path, err)
		}
		// Unmarshal over the defaults so partial files only override what they name.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("psychometrics config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Calibration.Mode = envutil.String("PSYCHOMETRICS_CALIBRATOR", c.Calibration.Mode)
	c.Attention.Temperature = envutil.Float("PSYCHOMETRICS_ATTENTION_TEMPERATURE", c.Attention.Temperature)
	c.CPI.DriftThreshold = envutil.Float("PSYCHOMETRICS_DRIFT_THRESHOLD", c.CPI.DriftThreshold)
	c.Recalibration.WeeklyLimit = envutil.Int("PSYCHOMETRICS_RECALIBRATION_WEEKLY_LIMIT", c.Recalibration.WeeklyLimit)
}

func (c Config) Validate() error {
	var problems []string
	if c.Model.Discrimination <= 0 {
		problems = append(problems, "model.discrimination must be > 0")
	}
	if c.Model.Guessing < 0 || c.Model.Guessing >= 1 {
		problems = append(problems, "model.guessing must be in [0,1)")
	}
	if c.Ability.MinResponses < 1 || c.Ability.ReliableMinSamples < c.Ability.MinResponses {
		problems = append(problems, "ability sample thresholds are inconsistent")
	}
	if c.Ability.MaxSE <= 0 || c.Ability.ReliableMaxSE <= 0 {
		problems = append(problems, "ability standard error bounds must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Calibration.Mode)) {
	case CalibratorStatistical, CalibratorMock:
	default:
		problems = append(problems, fmt.Sprintf("calibration.mode %q is not one of statistical|mock", c.Calibration.Mode))
	}
	if c.Calibration.MinResponses < 1 {
		problems = append(problems, "calibration.min_responses must be >= 1")
	}
	d := c.Difficulty
	if !(d.VeryEasyBelow < d.EasyBelow && d.EasyBelow < d.MediumBelow && d.MediumBelow < d.HardBelow) {
		problems = append(problems, "difficulty thresholds must be strictly increasing")
	}
	if c.Attention.Temperature < 0 {
		problems = append(problems, "attention.temperature must be >= 0")
	}
	if c.Attention.TopK < 1 || c.Attention.Capacity < 1 {
		problems = append(problems, "attention.top_k and attention.capacity must be >= 1")
	}
	for name, w := range c.Attention.FeatureWeights {
		if !isFeature(name) {
			problems = append(problems, fmt.Sprintf("attention.feature_weights: unknown feature %q", name))
		}
		if w < 0 {
			problems = append(problems, fmt.Sprintf("attention.feature_weights.%s must be >= 0", name))
		}
	}
	seen := map[string]string{}
	for _, h := range c.Attention.Heads {
		if len(h.Features) == 0 {
			problems = append(problems, fmt.Sprintf("attention head %q has no features", h.Name))
		}
		for _, f := range h.Features {
			if !isFeature(f) {
				problems = append(problems, fmt.Sprintf("attention head %q: unknown feature %q", h.Name, f))
			}
			if other, dup := seen[f]; dup {
				problems = append(problems, fmt.Sprintf("attention heads %q and %q share feature %q", other, h.Name, f))
			}
			seen[f] = h.Name
		}
	}
	if c.CPI.SmoothingAlpha <= 0 || c.CPI.SmoothingAlpha > 1 {
		problems = append(problems, "cpi.smoothing_alpha must be in (0,1]")
	}
	if c.CPI.DriftThreshold <= 0 {
		problems = append(problems, "cpi.drift_threshold must be > 0")
	}
	if c.CPI.TrendWindow < 1 || c.CPI.GrowthWindow < 1 || c.CPI.ConsistencyWindow < 2 {
		problems = append(problems, "cpi windows are too small")
	}
	if c.Recalibration.WeeklyLimit < 1 || c.Recalibration.DailyLimit < 1 {
		problems = append(problems, "recalibration limits must be >= 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("psychometrics config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func isFeature(name string) bool {
	for _, f := range AllFeatures {
		if f == name {
			return true
		}
	}
	return false
}

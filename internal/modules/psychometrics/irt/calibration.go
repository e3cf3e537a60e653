package irt

import (
	"fmt"
	"math"
	"strings"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

const (
	ReasonInsufficientData  = "insufficient_data"
	ReasonCalibrationFailed = "calibration_failed"
)

type CalibrationResult struct {
	Calibrated bool        `json:"calibrated"`
	Parameters *ItemParams `json:"parameters,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Required   int         `json:"required,omitempty"`
	Current    int         `json:"current"`
	PValue     float64     `json:"pValue,omitempty"`
}

// Err converts an unsuccessful result into the matching domain error.
func (r CalibrationResult) Err() error {
	switch {
	case r.Calibrated:
		return nil
	case r.Reason == ReasonInsufficientData:
		return psy.InsufficientData("calibrate item", r.Required, r.Current)
	default:
		return psy.CalibrationFailed("calibrate item", fmt.Sprintf("degenerate proportion correct %.2f over %d responses", r.PValue, r.Current))
	}
}

// Calibrator estimates item parameters from the item's aggregate outcomes.
type Calibrator interface {
	Calibrate(outcomes []bool) CalibrationResult
	Name() string
}

// NewCalibrator picks the implementation named by cfg.Mode.
func NewCalibrator(cfg config.CalibrationConfig, model Model) (Calibrator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", config.CalibratorStatistical:
		return &StatisticalCalibrator{minResponses: cfg.MinResponses, model: model}, nil
	case config.CalibratorMock:
		return &MockCalibrator{minResponses: cfg.MinResponses, model: model}, nil
	default:
		return nil, fmt.Errorf("irt: unknown calibrator mode %q", cfg.Mode)
	}
}

// StatisticalCalibrator sets difficulty to the log-odds of the observed
// proportion correct. Discrimination and guessing stay at the model defaults.
type StatisticalCalibrator struct {
	minResponses int
	model        Model
}

func (c *StatisticalCalibrator) Name() string { return config.CalibratorStatistical }

func (c *StatisticalCalibrator) Calibrate(outcomes []bool) CalibrationResult {
	n := len(outcomes)
	if n < c.minResponses {
		return CalibrationResult{Reason: ReasonInsufficientData, Required: c.minResponses, Current: n}
	}
	correct := 0
	for _, ok := range outcomes {
		if ok {
			correct++
		}
	}
	p := float64(correct) / float64(n)
	// A proportion of exactly 0 or 1 has infinite log-odds.
	if correct == 0 || correct == n {
		return CalibrationResult{Reason: ReasonCalibrationFailed, Current: n, PValue: p}
	}
	difficulty := math.Log(p / (1.0 - p))
	if math.IsNaN(difficulty) || math.IsInf(difficulty, 0) {
		return CalibrationResult{Reason: ReasonCalibrationFailed, Current: n, PValue: p}
	}
	return CalibrationResult{
		Calibrated: true,
		Parameters: &ItemParams{
			Difficulty:     difficulty,
			Discrimination: c.model.Discrimination,
			Guessing:       c.model.Guessing,
		},
		Current: n,
		PValue:  p,
	}
}

// MockCalibrator returns neutral parameters for any sufficiently sampled
// item. It is meant for environments without enough real outcome data.
type MockCalibrator struct {
	minResponses int
	model        Model
}

func (c *MockCalibrator) Name() string { return config.CalibratorMock }

func (c *MockCalibrator) Calibrate(outcomes []bool) CalibrationResult {
	n := len(outcomes)
	if n < c.minResponses {
		return CalibrationResult{Reason: ReasonInsufficientData, Required: c.minResponses, Current: n}
	}
	return CalibrationResult{
		Calibrated: true,
		Parameters: &ItemParams{
			Difficulty:     0,
			Discrimination: c.model.Discrimination,
			Guessing:       c.model.Guessing,
		},
		Current: n,
	}
}

package irt

import (
	"math"

	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

// Ability level labels, highest first.
const (
	LevelVeryAdvanced = "Very Advanced"
	LevelAdvanced     = "Advanced"
	LevelAverage      = "Average"
	LevelDeveloping   = "Developing"
	LevelBeginning    = "Beginning"
)

// Response is one scored submission. Params carries calibrated item
// parameters when the item bank has them.
type Response struct {
	Correct    bool        `json:"correct"`
	Difficulty float64     `json:"difficulty"`
	Params     *ItemParams `json:"params,omitempty"`
}

type AbilityEstimate struct {
	Ability          float64 `json:"ability"`
	StandardError    float64 `json:"standardError"`
	SampleSize       int     `json:"sampleSize"`
	Reliable         bool    `json:"reliable"`
	InsufficientData bool    `json:"insufficientData"`
	Percentile       float64 `json:"percentile"`
	AbilityLevel     string  `json:"abilityLevel"`
	PercentCorrect   float64 `json:"percentCorrect"`
}

type AbilityEstimator struct {
	model Model
	cfg   config.AbilityConfig
}

func NewAbilityEstimator(model Model, cfg config.AbilityConfig) *AbilityEstimator {
	return &AbilityEstimator{model: model, cfg: cfg}
}

// Estimate maps percent-correct onto the ability scale and derives the
// standard error from total 3PL Fisher information. It never fails: below
// the minimum sample size it returns the maximal-uncertainty sentinel.
func (e *AbilityEstimator) Estimate(responses []Response) AbilityEstimate {
	n := len(responses)
	if n < e.cfg.MinResponses {
		return AbilityEstimate{
			Ability:          0,
			StandardError:    e.cfg.MaxSE,
			SampleSize:       n,
			Reliable:         false,
			InsufficientData: true,
			Percentile:       50,
			AbilityLevel:     AbilityLevel(0),
		}
	}

	correct := 0
	for _, r := range responses {
		if r.Correct {
			correct++
		}
	}
	percentCorrect := float64(correct) / float64(n) * 100.0
	ability := ((percentCorrect - 50.0) / 50.0) * 3.0

	totalInfo := 0.0
	for _, r := range responses {
		totalInfo += Information(ability, e.model.Params(r.Difficulty, r.Params))
	}
	se := e.cfg.MaxSE
	if totalInfo > 0 {
		se = 1.0 / math.Sqrt(totalInfo)
	}

	return AbilityEstimate{
		Ability:        ability,
		StandardError:  se,
		SampleSize:     n,
		Reliable:       n >= e.cfg.ReliableMinSamples && se < e.cfg.ReliableMaxSE,
		Percentile:     round(normalCDF(ability)*100.0, 1),
		AbilityLevel:   AbilityLevel(ability),
		PercentCorrect: round(percentCorrect, 2),
	}
}

func AbilityLevel(ability float64) string {
	switch {
	case ability >= 2.0:
		return LevelVeryAdvanced
	case ability >= 1.0:
		return LevelAdvanced
	case ability >= 0.0:
		return LevelAverage
	case ability >= -1.0:
		return LevelDeveloping
	default:
		return LevelBeginning
	}
}

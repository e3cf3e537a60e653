package irt

import (
	"fmt"
	"math"

	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

const (
	BucketVeryEasy = "very_easy"
	BucketEasy     = "easy"
	BucketMedium   = "medium"
	BucketHard     = "hard"
	BucketVeryHard = "very_hard"
)

var Buckets = []string{BucketVeryEasy, BucketEasy, BucketMedium, BucketHard, BucketVeryHard}

type DifficultyRecommendation struct {
	Difficulty          string  `json:"difficulty"`
	NumericalDifficulty float64 `json:"numericalDifficulty"`
	StudentAbility      float64 `json:"studentAbility"`
	ExpectedSuccessRate float64 `json:"expectedSuccessRate"`
	Reasoning           string  `json:"reasoning"`
	Reliable            bool    `json:"reliable"`
}

type DifficultySelector struct {
	model Model
	cfg   config.DifficultyConfig
}

func NewDifficultySelector(model Model, cfg config.DifficultyConfig) *DifficultySelector {
	return &DifficultySelector{model: model, cfg: cfg}
}

// Recommend targets slightly above the learner's ability. Unreliable
// estimates fall back to the medium bucket.
func (s *DifficultySelector) Recommend(est AbilityEstimate) DifficultyRecommendation {
	if !est.Reliable {
		return DifficultyRecommendation{
			Difficulty:          BucketMedium,
			NumericalDifficulty: 0,
			StudentAbility:      est.Ability,
			ExpectedSuccessRate: s.successRate(est.Ability, 0),
			Reasoning: fmt.Sprintf(
				"ability estimate not yet reliable (n=%d, se=%.2f); using default medium difficulty",
				est.SampleSize, est.StandardError,
			),
			Reliable: false,
		}
	}
	target := est.Ability + s.cfg.Offset
	bucket := s.Bucket(target)
	rate := s.successRate(est.Ability, target)
	return DifficultyRecommendation{
		Difficulty:          bucket,
		NumericalDifficulty: round(target, 3),
		StudentAbility:      est.Ability,
		ExpectedSuccessRate: rate,
		Reasoning: fmt.Sprintf(
			"ability %.2f (se %.2f): targeting %.2f, %.2f above current ability, for an expected success rate of %.0f%%",
			est.Ability, est.StandardError, target, s.cfg.Offset, rate,
		),
		Reliable: true,
	}
}

func (s *DifficultySelector) Bucket(target float64) string {
	switch {
	case target < s.cfg.VeryEasyBelow:
		return BucketVeryEasy
	case target < s.cfg.EasyBelow:
		return BucketEasy
	case target < s.cfg.MediumBelow:
		return BucketMedium
	case target < s.cfg.HardBelow:
		return BucketHard
	default:
		return BucketVeryHard
	}
}

func (s *DifficultySelector) successRate(ability, difficulty float64) float64 {
	p := Probability(ability, s.model.Params(difficulty, nil))
	return clampRange(math.Round(p*100.0), 0, 100)
}

package irt

import (
	"math"
	"testing"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

func testEstimator() *AbilityEstimator {
	cfg := config.Default()
	return NewAbilityEstimator(DefaultModel(), cfg.Ability)
}

func uniform(n int, correct bool, difficulty float64) []Response {
	out := make([]Response, n)
	for i := range out {
		out[i] = Response{Correct: correct, Difficulty: difficulty}
	}
	return out
}

func TestEstimate_AllCorrectIsAdvanced(t *testing.T) {
	t.Parallel()
	for _, n := range []int{10, 25, 60} {
		est := testEstimator().Estimate(uniform(n, true, 0))
		if est.AbilityLevel != LevelAdvanced && est.AbilityLevel != LevelVeryAdvanced {
			t.Fatalf("n=%d: expected advanced level, got %q (ability=%.2f)", n, est.AbilityLevel, est.Ability)
		}
		if est.Percentile <= 50 || est.Percentile > 100 {
			t.Fatalf("n=%d: percentile out of range: %v", n, est.Percentile)
		}
	}
}

func TestEstimate_AllIncorrectIsBeginning(t *testing.T) {
	t.Parallel()
	est := testEstimator().Estimate(uniform(12, false, 0.5))
	if est.AbilityLevel != LevelBeginning && est.AbilityLevel != LevelDeveloping {
		t.Fatalf("expected beginning/developing, got %q", est.AbilityLevel)
	}
	if est.Ability != -3 {
		t.Fatalf("ability: want=-3 got=%v", est.Ability)
	}
}

func TestEstimate_ThreeResponsesAreNotReliable(t *testing.T) {
	t.Parallel()
	est := testEstimator().Estimate([]Response{
		{Correct: true, Difficulty: -1},
		{Correct: true, Difficulty: 0},
		{Correct: false, Difficulty: 1},
	})
	if est.InsufficientData {
		t.Fatalf("3 responses meet the minimum; insufficient flag should be false")
	}
	if est.Reliable {
		t.Fatalf("expected reliable=false for sample size 3")
	}
	if est.SampleSize != 3 {
		t.Fatalf("sample size: want=3 got=%d", est.SampleSize)
	}
	if math.IsNaN(est.Ability) {
		t.Fatalf("ability must be a number")
	}
}

func TestEstimate_BelowMinimumReturnsSentinel(t *testing.T) {
	t.Parallel()
	est := testEstimator().Estimate(uniform(2, true, 0))
	if !est.InsufficientData || est.Reliable {
		t.Fatalf("expected insufficient, unreliable estimate: %+v", est)
	}
	if est.Ability != 0 || est.StandardError != 2.0 {
		t.Fatalf("sentinel: want ability=0 se=2 got ability=%v se=%v", est.Ability, est.StandardError)
	}
}

func TestEstimate_ReliableWithEnoughInformation(t *testing.T) {
	t.Parallel()
	// Half correct on items near the estimate carries enough information.
	var responses []Response
	for i := 0; i < 40; i++ {
		responses = append(responses, Response{Correct: i%2 == 0, Difficulty: -1})
	}
	est := testEstimator().Estimate(responses)
	if est.Ability != 0 {
		t.Fatalf("ability: want=0 got=%v", est.Ability)
	}
	if !est.Reliable {
		t.Fatalf("expected reliable estimate, se=%v", est.StandardError)
	}
	if est.Percentile != 50 {
		t.Fatalf("percentile: want=50 got=%v", est.Percentile)
	}
}

func TestEstimate_UsesCalibratedParams(t *testing.T) {
	t.Parallel()
	plain := uniform(10, true, 0)
	calibrated := uniform(10, true, 0)
	for i := range calibrated {
		calibrated[i].Params = &ItemParams{Difficulty: 3, Discrimination: 2, Guessing: 0.1}
	}
	a := testEstimator().Estimate(plain)
	b := testEstimator().Estimate(calibrated)
	if a.Ability != b.Ability {
		t.Fatalf("ability depends only on percent correct")
	}
	if a.StandardError == b.StandardError {
		t.Fatalf("expected calibrated params to change the standard error")
	}
}

func TestInformation_DegenerateGuessing(t *testing.T) {
	t.Parallel()
	if got := Information(0, ItemParams{Difficulty: 0, Discrimination: 1, Guessing: 1}); got != 0 {
		t.Fatalf("want=0 got=%v", got)
	}
}

func TestAbilityLevel_Boundaries(t *testing.T) {
	t.Parallel()
	cases := map[float64]string{
		2.0:   LevelVeryAdvanced,
		1.999: LevelAdvanced,
		1.0:   LevelAdvanced,
		0.0:   LevelAverage,
		-0.01: LevelDeveloping,
		-1.0:  LevelDeveloping,
		-1.01: LevelBeginning,
	}
	for ability, want := range cases {
		if got := AbilityLevel(ability); got != want {
			t.Fatalf("ability=%v: want=%q got=%q", ability, want, got)
		}
	}
}

func outcomes(n, correct int) []bool {
	out := make([]bool, n)
	for i := 0; i < correct; i++ {
		out[i] = true
	}
	return out
}

func testCalibrator(t *testing.T, mode string) Calibrator {
	t.Helper()
	cfg := config.Default()
	cfg.Calibration.Mode = mode
	c, err := NewCalibrator(cfg.Calibration, DefaultModel())
	if err != nil {
		t.Fatalf("NewCalibrator: %v", err)
	}
	return c
}

func TestCalibrate_NineResponsesInsufficient(t *testing.T) {
	t.Parallel()
	res := testCalibrator(t, config.CalibratorStatistical).Calibrate(outcomes(9, 4))
	if res.Calibrated || res.Reason != ReasonInsufficientData {
		t.Fatalf("expected insufficient_data, got %+v", res)
	}
	if res.Required != 10 || res.Current != 9 {
		t.Fatalf("required/current: got %d/%d", res.Required, res.Current)
	}
	if !psy.IsCode(res.Err(), psy.CodeInsufficientData) {
		t.Fatalf("Err code: got %v", res.Err())
	}
}

func TestCalibrate_HalfCorrectIsZeroDifficulty(t *testing.T) {
	t.Parallel()
	res := testCalibrator(t, config.CalibratorStatistical).Calibrate(outcomes(10, 5))
	if !res.Calibrated || res.Parameters == nil {
		t.Fatalf("expected calibration, got %+v", res)
	}
	if math.Abs(res.Parameters.Difficulty) > 1e-9 {
		t.Fatalf("difficulty: want~0 got=%v", res.Parameters.Difficulty)
	}
	if res.Parameters.Discrimination != 1.0 || res.Parameters.Guessing != 0.25 {
		t.Fatalf("fixed params changed: %+v", res.Parameters)
	}
	if res.Err() != nil {
		t.Fatalf("unexpected Err: %v", res.Err())
	}
}

func TestCalibrate_LogOdds(t *testing.T) {
	t.Parallel()
	res := testCalibrator(t, config.CalibratorStatistical).Calibrate(outcomes(20, 15))
	want := math.Log(0.75 / 0.25)
	if !res.Calibrated || math.Abs(res.Parameters.Difficulty-want) > 1e-9 {
		t.Fatalf("difficulty: want=%v got=%+v", want, res)
	}
}

func TestCalibrate_DegenerateProportions(t *testing.T) {
	t.Parallel()
	c := testCalibrator(t, config.CalibratorStatistical)
	for _, correct := range []int{0, 12} {
		res := c.Calibrate(outcomes(12, correct))
		if res.Calibrated || res.Reason != ReasonCalibrationFailed {
			t.Fatalf("correct=%d: expected calibration_failed, got %+v", correct, res)
		}
		if res.Parameters != nil {
			t.Fatalf("correct=%d: failed calibration must not carry parameters", correct)
		}
		if !psy.IsCode(res.Err(), psy.CodeCalibrationFailed) {
			t.Fatalf("Err code: got %v", res.Err())
		}
	}
}

func TestCalibrate_MockReturnsNeutralParams(t *testing.T) {
	t.Parallel()
	c := testCalibrator(t, config.CalibratorMock)
	if c.Name() != config.CalibratorMock {
		t.Fatalf("name: got %q", c.Name())
	}
	res := c.Calibrate(outcomes(10, 10))
	if !res.Calibrated || res.Parameters.Difficulty != 0 {
		t.Fatalf("expected neutral calibration, got %+v", res)
	}
	if res := c.Calibrate(outcomes(3, 1)); res.Reason != ReasonInsufficientData {
		t.Fatalf("mock must still enforce the minimum, got %+v", res)
	}
}

func TestNewCalibrator_UnknownMode(t *testing.T) {
	t.Parallel()
	if _, err := NewCalibrator(config.CalibrationConfig{Mode: "bayes", MinResponses: 10}, DefaultModel()); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func testSelector() *DifficultySelector {
	cfg := config.Default()
	return NewDifficultySelector(DefaultModel(), cfg.Difficulty)
}

func TestRecommend_UnreliableFallsBackToMedium(t *testing.T) {
	t.Parallel()
	rec := testSelector().Recommend(AbilityEstimate{Ability: 2.5, StandardError: 2.0, SampleSize: 3})
	if rec.Difficulty != BucketMedium || rec.Reliable {
		t.Fatalf("expected medium fallback, got %+v", rec)
	}
	if rec.Reasoning == "" {
		t.Fatalf("expected reasoning")
	}
}

func TestRecommend_BucketsAndSuccessRate(t *testing.T) {
	t.Parallel()
	sel := testSelector()
	cases := []struct {
		ability float64
		bucket  string
	}{
		{-3, BucketVeryEasy},
		{-1.5, BucketEasy},
		{-0.5, BucketMedium},
		{0.5, BucketHard},
		{1.0, BucketVeryHard},
		{3, BucketVeryHard},
	}
	for _, tc := range cases {
		rec := sel.Recommend(AbilityEstimate{Ability: tc.ability, StandardError: 0.3, SampleSize: 40, Reliable: true})
		if rec.Difficulty != tc.bucket {
			t.Fatalf("ability=%v: want=%s got=%s", tc.ability, tc.bucket, rec.Difficulty)
		}
		if rec.ExpectedSuccessRate < 0 || rec.ExpectedSuccessRate > 100 {
			t.Fatalf("success rate out of range: %v", rec.ExpectedSuccessRate)
		}
		if math.Abs(rec.NumericalDifficulty-(tc.ability+0.5)) > 1e-9 {
			t.Fatalf("target: want=%v got=%v", tc.ability+0.5, rec.NumericalDifficulty)
		}
	}
}

func TestRecommend_IsDeterministic(t *testing.T) {
	t.Parallel()
	sel := testSelector()
	est := AbilityEstimate{Ability: 0.8, StandardError: 0.4, SampleSize: 30, Reliable: true}
	a := sel.Recommend(est)
	b := sel.Recommend(est)
	if a != b {
		t.Fatalf("expected identical recommendations: %+v vs %+v", a, b)
	}
	// P(theta, theta+0.5) with a=1, c=0.25: 0.25 + 0.75*sigmoid(-0.5) ~ 53%.
	if a.ExpectedSuccessRate != 53 {
		t.Fatalf("success rate: want=53 got=%v", a.ExpectedSuccessRate)
	}
}

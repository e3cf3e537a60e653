package attention

import (
	"math"
	"testing"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

func f64(v float64) *float64 { return &v }
func hour(v int) *int        { return &v }

func testSelector(mutate func(*config.AttentionConfig)) *Selector {
	cfg := config.Default().Attention
	if mutate != nil {
		mutate(&cfg)
	}
	return NewSelector(cfg)
}

func samplePool() []Candidate {
	return []Candidate{
		{ID: "c1", Features: Features{SimulationType: "debate", Difficulty: f64(2.0), Competencies: []string{"rhetoric"}}},
		{ID: "c2", Features: Features{SimulationType: "negotiation", Difficulty: f64(0.4), Competencies: []string{"empathy", "persuasion"}},
			Prediction: &Outcome{Score: 80, Engagement: 0.9, LearningGain: 0.7}},
		{ID: "c3", Features: Features{SimulationType: "negotiation", Difficulty: f64(-1.0), Competencies: []string{"empathy"}}},
		{ID: "c4", Features: Features{SimulationType: "interview", Difficulty: f64(0.5), Competencies: []string{"listening"}}},
	}
}

func sampleQuery() Features {
	return Features{
		SimulationType:    "negotiation",
		Difficulty:        f64(0.5),
		Competencies:      []string{"empathy", "persuasion"},
		TimeOfDay:         hour(14),
		SessionLength:     f64(20),
		RecentPerformance: f64(70),
	}
}

func TestSelect_WeightsSumToOne(t *testing.T) {
	t.Parallel()
	for _, temp := range []float64{0.05, 0.5, 1, 10} {
		sel, err := testSelector(func(c *config.AttentionConfig) { c.Temperature = temp }).Select(sampleQuery(), samplePool())
		if err != nil {
			t.Fatalf("T=%v: Select: %v", temp, err)
		}
		sum := 0.0
		for _, w := range sel.Weights {
			sum += w
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("T=%v: weights sum=%v", temp, sum)
		}
	}
}

func TestSelect_PicksMostSimilarCandidate(t *testing.T) {
	t.Parallel()
	sel, err := testSelector(nil).Select(sampleQuery(), samplePool())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Challenge.ID != "c2" {
		t.Fatalf("challenge: want=c2 got=%s", sel.Challenge.ID)
	}
	if sel.Fallback || sel.Error != "" {
		t.Fatalf("unexpected fallback: %+v", sel)
	}
	if len(sel.Alternatives) != 3 || sel.Alternatives[0].ID != "c2" {
		t.Fatalf("alternatives: %+v", sel.Alternatives)
	}
	for i := 1; i < len(sel.Alternatives); i++ {
		if sel.Alternatives[i].Weight > sel.Alternatives[i-1].Weight {
			t.Fatalf("alternatives not sorted: %+v", sel.Alternatives)
		}
	}
	if sel.Confidence < sel.AttentionScore || sel.Confidence > 1 {
		t.Fatalf("confidence=%v attention=%v", sel.Confidence, sel.AttentionScore)
	}
}

func TestSelect_LowTemperatureConvergesToArgmax(t *testing.T) {
	t.Parallel()
	sel, err := testSelector(func(c *config.AttentionConfig) { c.Temperature = 0.001 }).Select(sampleQuery(), samplePool())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Challenge.ID != "c2" || sel.AttentionScore < 0.99 {
		t.Fatalf("expected near one-hot on c2, got %s with %v", sel.Challenge.ID, sel.AttentionScore)
	}

	zero, err := testSelector(func(c *config.AttentionConfig) { c.Temperature = 0 }).Select(sampleQuery(), samplePool())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if zero.Challenge.ID != "c2" || zero.AttentionScore != 1 {
		t.Fatalf("T=0: want one-hot c2, got %s %v", zero.Challenge.ID, zero.AttentionScore)
	}
}

func TestSelect_HighTemperatureFlattens(t *testing.T) {
	t.Parallel()
	sel, err := testSelector(func(c *config.AttentionConfig) { c.Temperature = 1000 }).Select(sampleQuery(), samplePool())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for _, w := range sel.Weights {
		if math.Abs(w-0.25) > 0.01 {
			t.Fatalf("expected near-uniform weights, got %v", sel.Weights)
		}
	}
}

func TestSelect_ExpectedOutcomeUsesNeutralDefaults(t *testing.T) {
	t.Parallel()
	pool := samplePool()
	pool[1].Prediction = nil
	sel, err := testSelector(nil).Select(sampleQuery(), pool)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if math.Abs(sel.ExpectedOutcome.Score-50) > 1e-9 || math.Abs(sel.ExpectedOutcome.Engagement-0.5) > 1e-9 {
		t.Fatalf("expected neutral outcome, got %+v", sel.ExpectedOutcome)
	}
}

func TestSelect_EmptyPool(t *testing.T) {
	t.Parallel()
	_, err := testSelector(nil).Select(sampleQuery(), nil)
	if !psy.IsCode(err, psy.CodeNoCandidates) {
		t.Fatalf("expected no_candidates, got %v", err)
	}
}

func TestSelect_MissingFeatureIsConfigurationError(t *testing.T) {
	t.Parallel()
	pool := samplePool()
	pool[2].Features.Difficulty = nil
	_, err := testSelector(nil).Select(sampleQuery(), pool)
	if !psy.IsCode(err, psy.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	q := sampleQuery()
	q.TimeOfDay = hour(24)
	_, err = testSelector(nil).Select(q, samplePool())
	if !psy.IsCode(err, psy.CodeConfiguration) {
		t.Fatalf("expected configuration error for hour, got %v", err)
	}
}

func TestSelect_NumericFailureFallsBackToFirst(t *testing.T) {
	t.Parallel()
	s := testSelector(func(c *config.AttentionConfig) {
		c.FeatureWeights = map[string]float64{config.FeatureDifficulty: math.NaN()}
	})
	sel, err := s.Select(sampleQuery(), samplePool())
	if err != nil {
		t.Fatalf("fallback must not return an error: %v", err)
	}
	if !sel.Fallback || sel.Challenge.ID != "c1" {
		t.Fatalf("expected fallback to c1, got %+v", sel)
	}
	if sel.AttentionScore != 0 || sel.Confidence != 0 || sel.Error == "" {
		t.Fatalf("fallback fields: %+v", sel)
	}
}

func TestFeatureSimilarity_CircularHour(t *testing.T) {
	t.Parallel()
	sc := scalesFrom(config.AttentionConfig{})
	a := featureSimilarity(config.FeatureTimeOfDay, Features{TimeOfDay: hour(23)}, Features{TimeOfDay: hour(1)}, sc)
	b := featureSimilarity(config.FeatureTimeOfDay, Features{TimeOfDay: hour(11)}, Features{TimeOfDay: hour(13)}, sc)
	if math.Abs(a-b) > 1e-12 {
		t.Fatalf("23->1 and 11->13 should be equally close: %v vs %v", a, b)
	}
	if got := featureSimilarity(config.FeatureTimeOfDay, Features{}, Features{TimeOfDay: hour(3)}, sc); got != neutralSimilarity {
		t.Fatalf("missing hour: want neutral got %v", got)
	}
}

func TestInteractionContext_EvictsOldest(t *testing.T) {
	t.Parallel()
	ctx := NewInteractionContext(DefaultCapacity)
	evicted := 0
	for i := 1; i <= 25; i++ {
		evicted += ctx.Append(InteractionRecord{ChallengeID: string(rune('A' - 1 + i))})
	}
	if ctx.Len() != 20 {
		t.Fatalf("len: want=20 got=%d", ctx.Len())
	}
	if evicted != 5 {
		t.Fatalf("evicted: want=5 got=%d", evicted)
	}
	recs := ctx.Records()
	// Entries 1..5 are gone; the oldest survivor is the 6th append.
	if recs[0].ChallengeID != "F" || recs[19].ChallengeID != "Y" {
		t.Fatalf("window: first=%s last=%s", recs[0].ChallengeID, recs[19].ChallengeID)
	}
	for _, r := range recs {
		if r.ChallengeID == "E" {
			t.Fatalf("5th entry should have been evicted")
		}
	}
}

func TestAnalyzeMultiHead(t *testing.T) {
	t.Parallel()
	s := testSelector(nil)
	if _, err := s.AnalyzeMultiHead(sampleQuery(), nil); !psy.IsCode(err, psy.CodeInsufficientData) {
		t.Fatalf("empty history: want insufficient_data, got %v", err)
	}

	history := []InteractionRecord{
		{ChallengeID: "h1", Features: Features{SimulationType: "negotiation", Difficulty: f64(0.5), Competencies: []string{"empathy"}, TimeOfDay: hour(14)},
			Outcome: &Outcome{Score: 90, Engagement: 0.9, LearningGain: 0.8}},
		{ChallengeID: "h2", Features: Features{SimulationType: "debate", Difficulty: f64(-2), Competencies: []string{"rhetoric"}, TimeOfDay: hour(2)},
			Outcome: &Outcome{Score: 30, Engagement: 0.2, LearningGain: 0.1}},
	}
	res, err := s.AnalyzeMultiHead(sampleQuery(), history)
	if err != nil {
		t.Fatalf("AnalyzeMultiHead: %v", err)
	}
	if len(res.Heads) != 3 {
		t.Fatalf("heads: want=3 got=%d", len(res.Heads))
	}
	for _, h := range res.Heads {
		sum := 0.0
		for _, w := range h.Weights {
			sum += w
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("head %s weights sum=%v", h.Name, sum)
		}
		if h.FocusID != "h1" {
			t.Fatalf("head %s focus: want=h1 got=%s", h.Name, h.FocusID)
		}
	}
	if res.Output.Score <= 60 {
		t.Fatalf("combined output should lean toward h1: %+v", res.Output)
	}
	if res.HistorySize != 2 || res.DominantHead == "" {
		t.Fatalf("unexpected summary: %+v", res)
	}
}

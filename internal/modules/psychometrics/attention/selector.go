package attention

import (
	"fmt"
	"math"
	"sort"
	"strings"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

// Candidate is one deliverable challenge. Prediction is optional; missing
// predictions fall back to NeutralOutcome.
type Candidate struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Features   Features `json:"features"`
	Prediction *Outcome `json:"prediction,omitempty"`
}

type Ranked struct {
	ID         string  `json:"id"`
	Weight     float64 `json:"weight"`
	Similarity float64 `json:"similarity"`
}

type Selection struct {
	Challenge       Candidate `json:"challenge"`
	AttentionScore  float64   `json:"attentionScore"`
	Confidence      float64   `json:"confidence"`
	Alternatives    []Ranked  `json:"alternatives"`
	Weights         []float64 `json:"weights,omitempty"`
	ExpectedOutcome Outcome   `json:"expectedOutcome"`
	Reasoning       string    `json:"reasoning"`
	Fallback        bool      `json:"fallback"`
	Error           string    `json:"error,omitempty"`
}

// Selector ranks candidates against a query context with temperature-scaled
// softmax attention. It holds no per-learner state.
type Selector struct {
	cfg    config.AttentionConfig
	scales scales
}

func NewSelector(cfg config.AttentionConfig) *Selector {
	if cfg.TopK < 1 {
		cfg.TopK = 3
	}
	return &Selector{cfg: cfg, scales: scalesFrom(cfg)}
}

func (s *Selector) Temperature() float64 { return s.cfg.Temperature }

// Select picks the candidate with the highest attention weight. An empty pool
// and malformed features are errors; any numeric failure after validation
// degrades to the first candidate with zero score and confidence.
func (s *Selector) Select(query Features, pool []Candidate) (Selection, error) {
	const op = "select challenge"
	if len(pool) == 0 {
		return Selection{}, psy.NewError(psy.CodeNoCandidates, op, "candidate pool is empty", nil)
	}
	if err := validateQuery(query); err != nil {
		return Selection{}, psy.Configuration(op, err.Error())
	}
	for i, c := range pool {
		if err := validateCandidate(c); err != nil {
			return Selection{}, psy.Configuration(op, fmt.Sprintf("candidate %d: %s", i, err.Error()))
		}
	}

	sel, err := s.rank(query, pool)
	if err != nil {
		return fallbackSelection(pool, err), nil
	}
	return sel, nil
}

func (s *Selector) rank(query Features, pool []Candidate) (sel Selection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attention: ranking panicked: %v", r)
		}
	}()

	keys := make([]Features, len(pool))
	for i, c := range pool {
		keys[i] = c.Features
	}
	sims, weights, err := attend(query, keys, config.AllFeatures, s.cfg.FeatureWeights, s.scales, s.cfg.Temperature)
	if err != nil {
		return Selection{}, err
	}

	order := rankOrder(weights)
	best := order[0]
	k := s.cfg.TopK
	if k > len(order) {
		k = len(order)
	}
	alts := make([]Ranked, 0, k)
	confidence := 0.0
	for _, idx := range order[:k] {
		alts = append(alts, Ranked{ID: pool[idx].ID, Weight: weights[idx], Similarity: sims[idx]})
		confidence += weights[idx]
	}

	expected := Outcome{}
	for i, c := range pool {
		v := outcomeOrNeutral(c.Prediction)
		expected.Score += weights[i] * v.Score
		expected.Engagement += weights[i] * v.Engagement
		expected.LearningGain += weights[i] * v.LearningGain
	}

	chosen := pool[best]
	reason := fmt.Sprintf(
		"selected %s with attention %.2f among %d candidates (similarity %.2f, strongest match on %s)",
		chosen.ID, weights[best], len(pool), sims[best],
		strongestFeature(query, chosen.Features, config.AllFeatures, s.cfg.FeatureWeights, s.scales),
	)
	return Selection{
		Challenge:       chosen,
		AttentionScore:  weights[best],
		Confidence:      math.Min(confidence, 1.0),
		Alternatives:    alts,
		Weights:         weights,
		ExpectedOutcome: expected,
		Reasoning:       reason,
	}, nil
}

func fallbackSelection(pool []Candidate, cause error) Selection {
	return Selection{
		Challenge:       pool[0],
		AttentionScore:  0,
		Confidence:      0,
		Alternatives:    []Ranked{},
		ExpectedOutcome: outcomeOrNeutral(pool[0].Prediction),
		Reasoning:       "attention ranking unavailable; delivering the first candidate",
		Fallback:        true,
		Error:           cause.Error(),
	}
}

// attend returns raw similarities and their softmax weights.
func attend(query Features, keys []Features, names []string, fw map[string]float64, sc scales, temperature float64) ([]float64, []float64, error) {
	sims := make([]float64, len(keys))
	for i, k := range keys {
		sims[i] = similarity(query, k, names, fw, sc)
		if math.IsNaN(sims[i]) || math.IsInf(sims[i], 0) {
			return nil, nil, fmt.Errorf("attention: non-finite similarity for key %d", i)
		}
	}
	weights, err := softmax(sims, temperature)
	if err != nil {
		return nil, nil, err
	}
	return sims, weights, nil
}

// softmax applies exp(x/T) normalisation, shifted by the max for stability.
// A non-positive temperature degenerates to a one-hot argmax on the first
// maximum.
func softmax(xs []float64, temperature float64) ([]float64, error) {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out, nil
	}
	maxIdx := 0
	for i, x := range xs {
		if x > xs[maxIdx] {
			maxIdx = i
		}
	}
	if temperature <= 0 {
		out[maxIdx] = 1
		return out, nil
	}
	sum := 0.0
	for i, x := range xs {
		out[i] = math.Exp((x - xs[maxIdx]) / temperature)
		sum += out[i]
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("attention: softmax normaliser %v", sum)
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}

// rankOrder returns indices by descending weight; ties keep pool order.
func rankOrder(weights []float64) []int {
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return weights[order[a]] > weights[order[b]] })
	return order
}

func validateQuery(q Features) error {
	if q.TimeOfDay != nil && (*q.TimeOfDay < 0 || *q.TimeOfDay > 23) {
		return fmt.Errorf("context time_of_day %d outside 0-23", *q.TimeOfDay)
	}
	if q.Difficulty != nil && !finite(*q.Difficulty) {
		return fmt.Errorf("context difficulty is not finite")
	}
	return nil
}

func validateCandidate(c Candidate) error {
	var missing []string
	if strings.TrimSpace(c.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(c.Features.SimulationType) == "" {
		missing = append(missing, config.FeatureSimulationType)
	}
	if c.Features.Difficulty == nil {
		missing = append(missing, config.FeatureDifficulty)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required features: %s", strings.Join(missing, ", "))
	}
	if !finite(*c.Features.Difficulty) {
		return fmt.Errorf("difficulty is not finite")
	}
	if h := c.Features.TimeOfDay; h != nil && (*h < 0 || *h > 23) {
		return fmt.Errorf("time_of_day %d outside 0-23", *h)
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

package cpi

import (
	"fmt"
	"math"
	"sort"
	"strings"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

type Result struct {
	LearnerID        string             `json:"learnerId"`
	CPI              *float64           `json:"cpi"`
	SmoothedCPI      *float64           `json:"smoothedCpi"`
	ConsistencyScore float64            `json:"consistencyScore"`
	GrowthRate       float64            `json:"growthRate"`
	DriftDetected    bool               `json:"driftDetected"`
	AssessmentCount  int                `json:"assessmentCount"`
	CompetencyScores map[string]float64 `json:"competencyScores"`
	StrengthAreas    []string           `json:"strengthAreas"`
	ImprovementAreas []string           `json:"improvementAreas"`
	LatestScores     map[string]float64 `json:"latestScores"`
}

// Engine derives the Competency Performance Index from ledger events. It
// keeps no state between calls; the ledger is the only source of truth.
type Engine struct {
	cfg config.CPIConfig
}

func NewEngine(cfg config.CPIConfig) *Engine {
	if cfg.AreasLimit < 1 {
		cfg.AreasLimit = 3
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) DriftThreshold() float64 { return e.cfg.DriftThreshold }

// GenerateCPI fails fast on any event without an integrity hash. Zero events
// is a valid "no data" result with a nil CPI.
func (e *Engine) GenerateCPI(learnerID string, events []psy.LedgerEvent) (Result, error) {
	out := Result{
		LearnerID:        learnerID,
		CompetencyScores: map[string]float64{},
		LatestScores:     map[string]float64{},
		StrengthAreas:    []string{},
		ImprovementAreas: []string{},
		ConsistencyScore: 1,
	}
	ordered, err := verifiedInOrder("generate cpi", learnerID, events)
	if err != nil {
		return Result{}, err
	}
	if len(ordered) == 0 {
		return out, nil
	}
	out.AssessmentCount = len(ordered)

	sums := map[string]float64{}
	counts := map[string]int{}
	var eventScores []float64
	var snapshots []float64
	for _, ev := range ordered {
		ch := ev.Challenge.Data()
		if ch.CPISnapshot != nil && finite(*ch.CPISnapshot) {
			snapshots = append(snapshots, clamp(*ch.CPISnapshot, 0, 1))
		}
		if s, ok := eventScore(ch); ok {
			eventScores = append(eventScores, s)
		}
		for _, c := range ch.CompetenciesAssessed {
			name := strings.TrimSpace(c.Competency)
			if name == "" || !finite(c.Score) {
				continue
			}
			score := clamp(c.Score, 0, 100)
			sums[name] += score
			counts[name]++
			out.LatestScores[name] = score
		}
	}
	for name, sum := range sums {
		out.CompetencyScores[name] = round(clamp(sum/float64(counts[name]), 0, 100), 2)
	}

	var raw *float64
	switch {
	case len(out.CompetencyScores) > 0:
		total := 0.0
		for _, v := range out.CompetencyScores {
			total += v
		}
		v := total / float64(len(out.CompetencyScores)) / 100.0
		raw = &v
	case len(eventScores) > 0:
		v := meanOf(eventScores) / 100.0
		raw = &v
	}
	if raw != nil {
		r := round(clamp(*raw, 0, 1), 4)
		smoothed := round(SmoothCPI(r, snapshots, e.cfg.SmoothingAlpha), 4)
		out.CPI = &r
		out.SmoothedCPI = &smoothed
		out.DriftDetected = DetectDrift(r, smoothed, e.cfg.DriftThreshold)
	}

	out.ConsistencyScore = round(consistency(lastN(eventScores, e.cfg.ConsistencyWindow)), 4)
	out.GrowthRate = round(growth(eventScores, e.cfg.GrowthWindow), 2)
	out.StrengthAreas, out.ImprovementAreas = areas(out.CompetencyScores, e.cfg.AreasLimit)
	return out, nil
}

// verifiedInOrder checks integrity and returns a timestamp-ordered copy.
func verifiedInOrder(op, learnerID string, events []psy.LedgerEvent) ([]psy.LedgerEvent, error) {
	for i := range events {
		ev := &events[i]
		if strings.TrimSpace(ev.Hash) == "" {
			return nil, psy.DataIntegrity(op, fmt.Sprintf("ledger event %s (index %d) has no hash", ev.ID, i))
		}
		if learnerID != "" && ev.StudentID != "" && ev.StudentID != learnerID {
			return nil, psy.DataIntegrity(op, fmt.Sprintf("ledger event %s belongs to another learner", ev.ID))
		}
	}
	ordered := make([]psy.LedgerEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp.Before(ordered[j].Timestamp) })
	return ordered, nil
}

// eventScore is the mean of the event's competency scores, falling back to
// correctness on a 0-100 scale.
func eventScore(ch psy.LedgerChallenge) (float64, bool) {
	var vals []float64
	for _, c := range ch.CompetenciesAssessed {
		if strings.TrimSpace(c.Competency) != "" && finite(c.Score) {
			vals = append(vals, clamp(c.Score, 0, 100))
		}
	}
	if len(vals) > 0 {
		return meanOf(vals), true
	}
	if ch.Correctness != nil && finite(*ch.Correctness) {
		return clamp(*ch.Correctness, 0, 1) * 100.0, true
	}
	return 0, false
}

// consistency is 1 - sd/50 floored at zero. Fewer than two scores are
// treated as perfectly consistent.
func consistency(scores []float64) float64 {
	if len(scores) < 2 {
		return 1
	}
	m := meanOf(scores)
	ss := 0.0
	for _, s := range scores {
		ss += (s - m) * (s - m)
	}
	sd := math.Sqrt(ss / float64(len(scores)))
	return math.Max(0, 1-sd/50.0)
}

// growth compares the last window of scores with the window before it. With
// fewer than two full windows the series is split in halves.
func growth(scores []float64, window int) float64 {
	n := len(scores)
	if n < 2 {
		return 0
	}
	if window < 1 || n < 2*window {
		window = n / 2
	}
	recent := scores[n-window:]
	older := scores[n-2*window : n-window]
	return meanOf(recent) - meanOf(older)
}

func areas(scores map[string]float64, limit int) ([]string, []string) {
	names := make([]string, 0, len(scores))
	for k := range scores {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	strengths := append([]string{}, names[:minInt(limit, len(names))]...)
	taken := map[string]bool{}
	for _, s := range strengths {
		taken[s] = true
	}
	improvements := []string{}
	for i := len(names) - 1; i >= 0 && len(improvements) < limit; i-- {
		if !taken[names[i]] {
			improvements = append(improvements, names[i])
		}
	}
	return strengths, improvements
}

func lastN(xs []float64, n int) []float64 {
	if n <= 0 || len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

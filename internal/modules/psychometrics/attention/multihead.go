package attention

import (
	"fmt"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

type HeadResult struct {
	Name      string    `json:"name"`
	Features  []string  `json:"features"`
	Weights   []float64 `json:"weights"`
	Relevance float64   `json:"relevance"`
	Focus     float64   `json:"focus"`
	FocusID   string    `json:"focusChallengeId,omitempty"`
	Output    Outcome   `json:"output"`
}

// MultiHeadAnalysis explains which parts of a learner's recent history the
// current context resembles. It is not used to pick challenges.
type MultiHeadAnalysis struct {
	Heads        []HeadResult `json:"heads"`
	Relevance    float64      `json:"relevance"`
	Output       Outcome      `json:"output"`
	DominantHead string       `json:"dominantHead"`
	HistorySize  int          `json:"historySize"`
}

func (s *Selector) heads() []config.HeadConfig {
	if len(s.cfg.Heads) > 0 {
		return s.cfg.Heads
	}
	return []config.HeadConfig{{Name: "all", Features: config.AllFeatures}}
}

// AnalyzeMultiHead runs attention independently per feature head over the
// interaction history and averages the head outputs.
func (s *Selector) AnalyzeMultiHead(query Features, history []InteractionRecord) (MultiHeadAnalysis, error) {
	const op = "analyze attention"
	if len(history) == 0 {
		return MultiHeadAnalysis{}, psy.InsufficientData(op, 1, 0)
	}
	if err := validateQuery(query); err != nil {
		return MultiHeadAnalysis{}, psy.Configuration(op, err.Error())
	}

	keys := make([]Features, len(history))
	for i, r := range history {
		keys[i] = r.Features
	}

	heads := s.heads()
	out := MultiHeadAnalysis{Heads: make([]HeadResult, 0, len(heads)), HistorySize: len(history)}
	bestRelevance := -1.0
	for _, h := range heads {
		sims, weights, err := attend(query, keys, h.Features, s.cfg.FeatureWeights, s.scales, s.cfg.Temperature)
		if err != nil {
			return MultiHeadAnalysis{}, psy.NewError(psy.CodeInternal, op, fmt.Sprintf("head %s", h.Name), err)
		}
		hr := HeadResult{Name: h.Name, Features: h.Features, Weights: weights}
		focusIdx := 0
		for i, w := range weights {
			v := outcomeOrNeutral(history[i].Outcome)
			hr.Output.Score += w * v.Score
			hr.Output.Engagement += w * v.Engagement
			hr.Output.LearningGain += w * v.LearningGain
			hr.Relevance += w * sims[i]
			if w > weights[focusIdx] {
				focusIdx = i
			}
		}
		hr.Focus = weights[focusIdx]
		hr.FocusID = history[focusIdx].ChallengeID
		if hr.Relevance > bestRelevance {
			bestRelevance = hr.Relevance
			out.DominantHead = hr.Name
		}
		out.Heads = append(out.Heads, hr)
	}

	n := float64(len(out.Heads))
	for _, hr := range out.Heads {
		out.Relevance += hr.Relevance / n
		out.Output.Score += hr.Output.Score / n
		out.Output.Engagement += hr.Output.Engagement / n
		out.Output.LearningGain += hr.Output.LearningGain / n
	}
	return out, nil
}

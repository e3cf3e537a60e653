package attention

import (
	"math"
	"strings"

	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
)

// neutralSimilarity is used for a feature that one side does not carry.
const neutralSimilarity = 0.5

// Features is the shared context vector. The query, each candidate key and
// each remembered interaction use the same schema.
type Features struct {
	SimulationType    string   `json:"simulationType"`
	Difficulty        *float64 `json:"difficulty,omitempty"`
	Competencies      []string `json:"competencies,omitempty"`
	TimeOfDay         *int     `json:"timeOfDay,omitempty"`
	SessionLength     *float64 `json:"sessionLength,omitempty"`
	RecentPerformance *float64 `json:"recentPerformance,omitempty"`
}

// Outcome is the value side of attention: what a candidate (or a past
// interaction) is predicted to (or did) yield.
type Outcome struct {
	Score        float64 `json:"score"`
	Engagement   float64 `json:"engagement"`
	LearningGain float64 `json:"learningGain"`
}

func NeutralOutcome() Outcome {
	return Outcome{Score: 50, Engagement: 0.5, LearningGain: 0.5}
}

func outcomeOrNeutral(o *Outcome) Outcome {
	if o == nil {
		return NeutralOutcome()
	}
	return *o
}

type scales struct {
	difficulty float64
	session    float64
}

func scalesFrom(cfg config.AttentionConfig) scales {
	s := scales{difficulty: cfg.DifficultyScale, session: cfg.SessionScaleMinutes}
	if s.difficulty <= 0 {
		s.difficulty = 1.0
	}
	if s.session <= 0 {
		s.session = 30
	}
	return s
}

// featureSimilarity compares one feature of a query and a key, returning a
// value in [0,1].
func featureSimilarity(name string, q, k Features, sc scales) float64 {
	switch name {
	case config.FeatureSimulationType:
		qt := strings.ToLower(strings.TrimSpace(q.SimulationType))
		kt := strings.ToLower(strings.TrimSpace(k.SimulationType))
		if qt == "" || kt == "" {
			return neutralSimilarity
		}
		if qt == kt {
			return 1
		}
		return 0
	case config.FeatureDifficulty:
		if q.Difficulty == nil || k.Difficulty == nil {
			return neutralSimilarity
		}
		return 1.0 / (1.0 + math.Abs(*q.Difficulty-*k.Difficulty)/sc.difficulty)
	case config.FeatureCompetencies:
		return jaccard(q.Competencies, k.Competencies)
	case config.FeatureTimeOfDay:
		if q.TimeOfDay == nil || k.TimeOfDay == nil {
			return neutralSimilarity
		}
		d := *q.TimeOfDay - *k.TimeOfDay
		if d < 0 {
			d = -d
		}
		if 24-d < d {
			d = 24 - d
		}
		return 1.0 - float64(d)/12.0
	case config.FeatureSessionLength:
		if q.SessionLength == nil || k.SessionLength == nil {
			return neutralSimilarity
		}
		return 1.0 / (1.0 + math.Abs(*q.SessionLength-*k.SessionLength)/sc.session)
	case config.FeatureRecentPerformance:
		if q.RecentPerformance == nil || k.RecentPerformance == nil {
			return neutralSimilarity
		}
		return clamp01(1.0 - math.Abs(*q.RecentPerformance-*k.RecentPerformance)/100.0)
	default:
		return neutralSimilarity
	}
}

func jaccard(a, b []string) float64 {
	as := toSet(a)
	bs := toSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return neutralSimilarity
	}
	inter := 0
	for k := range as {
		if _, ok := bs[k]; ok {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	return float64(inter) / float64(union)
}

func toSet(xs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		x = strings.ToLower(strings.TrimSpace(x))
		if x != "" {
			out[x] = struct{}{}
		}
	}
	return out
}

// similarity is the weighted mean of the named feature similarities.
func similarity(q, k Features, names []string, weights map[string]float64, sc scales) float64 {
	num, den := 0.0, 0.0
	for _, name := range names {
		w, ok := weights[name]
		if !ok {
			w = 1.0
		}
		if w == 0 {
			continue
		}
		num += w * featureSimilarity(name, q, k, sc)
		den += w
	}
	if den == 0 {
		return neutralSimilarity
	}
	return num / den
}

// strongestFeature names the feature contributing most to the similarity.
func strongestFeature(q, k Features, names []string, weights map[string]float64, sc scales) string {
	best, bestScore := "", -1.0
	for _, name := range names {
		w, ok := weights[name]
		if !ok {
			w = 1.0
		}
		s := w * featureSimilarity(name, q, k, sc)
		if s > bestScore {
			best, bestScore = name, s
		}
	}
	return best
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

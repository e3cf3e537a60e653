package cpi

import (
	"strings"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
)

const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

type CompetencyTrend struct {
	Trend           string  `json:"trend"`
	RecentAverage   float64 `json:"recentAverage"`
	PreviousAverage float64 `json:"previousAverage"`
	Change          float64 `json:"change"`
	DataPoints      int     `json:"dataPoints"`
}

// CalculateCompetencyTrends compares each competency's last window of scores
// with the window before it. Competencies without two full windows are
// stable.
func (e *Engine) CalculateCompetencyTrends(learnerID string, events []psy.LedgerEvent) (map[string]CompetencyTrend, error) {
	ordered, err := verifiedInOrder("competency trends", learnerID, events)
	if err != nil {
		return nil, err
	}
	series := map[string][]float64{}
	for _, ev := range ordered {
		for _, c := range ev.Challenge.Data().CompetenciesAssessed {
			name := strings.TrimSpace(c.Competency)
			if name == "" || !finite(c.Score) {
				continue
			}
			series[name] = append(series[name], clamp(c.Score, 0, 100))
		}
	}

	window := e.cfg.TrendWindow
	if window < 1 {
		window = 3
	}
	out := make(map[string]CompetencyTrend, len(series))
	for name, scores := range series {
		t := CompetencyTrend{Trend: TrendStable, DataPoints: len(scores)}
		if n := len(scores); n >= 2*window {
			recent := scores[n-window:]
			older := scores[n-2*window : n-window]
			t.RecentAverage = round(meanOf(recent), 2)
			t.PreviousAverage = round(meanOf(older), 2)
			t.Change = round(t.RecentAverage-t.PreviousAverage, 2)
			diff := meanOf(recent) - meanOf(older)
			switch {
			case diff > e.cfg.TrendMargin:
				t.Trend = TrendImproving
			case diff < -e.cfg.TrendMargin:
				t.Trend = TrendDeclining
			}
		} else {
			t.RecentAverage = round(meanOf(scores), 2)
		}
		out[name] = t
	}
	return out, nil
}

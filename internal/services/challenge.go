package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/contextmem"
	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/attention"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/irt"
	"github.com/yungbote/neurobridge-psychometrics/internal/observability"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type SelectChallengeInput struct {
	Context    attention.Features    `json:"context"`
	Candidates []attention.Candidate `json:"candidates"`
}

type ChallengeSelection struct {
	attention.Selection
	Difficulty *irt.DifficultyRecommendation `json:"difficultyRecommendation,omitempty"`
}

type ChallengeService interface {
	SelectChallenge(ctx context.Context, learnerID string, in SelectChallengeInput) (*ChallengeSelection, error)
	RecordInteraction(ctx context.Context, learnerID string, rec attention.InteractionRecord) error
	Insights(ctx context.Context, learnerID string, query attention.Features) (attention.MultiHeadAnalysis, error)
}

type challengeService struct {
	log      *logger.Logger
	ability  AbilityService
	selector *attention.Selector
	memory   contextmem.Memory
	locks    *learnerLocks
}

func NewChallengeService(baseLog *logger.Logger, ability AbilityService, selector *attention.Selector, memory contextmem.Memory) ChallengeService {
	return &challengeService{
		log:      baseLog.With("service", "ChallengeService"),
		ability:  ability,
		selector: selector,
		memory:   memory,
		locks:    newLearnerLocks(),
	}
}

// SelectChallenge combines the difficulty recommendation with attention
// ranking. When the caller gives no target difficulty, the recommended one
// is used as the query difficulty.
func (s *challengeService) SelectChallenge(ctx context.Context, learnerID string, in SelectChallengeInput) (out *ChallengeSelection, err error) {
	ctx, span := startSpan(ctx, "challenge.select", attribute.Int("challenge.candidates", len(in.Candidates)))
	defer func() { endSpan(span, err) }()

	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil, psy.Configuration("select challenge", "learner id is required")
	}

	out = &ChallengeSelection{}
	query := in.Context
	if s.ability != nil {
		rec, rerr := s.ability.OptimalDifficulty(ctx, learnerID)
		if rerr != nil {
			logFor(ctx, s.log).Warn("difficulty recommendation unavailable", "learner_id", learnerID, "error", rerr)
		} else {
			out.Difficulty = &rec
			if query.Difficulty == nil {
				target := rec.NumericalDifficulty
				query.Difficulty = &target
			}
		}
	}

	sel, err := s.selector.Select(query, in.Candidates)
	if err != nil {
		return nil, err
	}
	observability.Current().IncSelection(sel.Fallback)
	if sel.Fallback {
		logFor(ctx, s.log).Warn("attention selection fell back to first candidate", "learner_id", learnerID, "error", sel.Error)
	}
	span.SetAttributes(attribute.String("challenge.id", sel.Challenge.ID), attribute.Bool("challenge.fallback", sel.Fallback))
	out.Selection = sel
	return out, nil
}

func (s *challengeService) RecordInteraction(ctx context.Context, learnerID string, rec attention.InteractionRecord) error {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return psy.Configuration("record interaction", "learner id is required")
	}
	if h := rec.Features.TimeOfDay; h != nil && (*h < 0 || *h > 23) {
		return psy.Configuration("record interaction", "time_of_day must be within 0-23")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	unlock := s.locks.Lock(learnerID)
	defer unlock()
	return s.memory.Append(ctx, learnerID, rec)
}

func (s *challengeService) Insights(ctx context.Context, learnerID string, query attention.Features) (res attention.MultiHeadAnalysis, err error) {
	ctx, span := startSpan(ctx, "challenge.insights")
	defer func() { endSpan(span, err) }()

	history, err := s.memory.Recent(ctx, strings.TrimSpace(learnerID))
	if err != nil {
		return attention.MultiHeadAnalysis{}, err
	}
	return s.selector.AnalyzeMultiHead(query, history)
}

package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/itembank"
	repos "github.com/yungbote/neurobridge-psychometrics/internal/data/repos/psychometrics"
	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/irt"
	"github.com/yungbote/neurobridge-psychometrics/internal/observability"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type RecordResponseInput struct {
	LearnerID  string
	ItemID     string
	Correct    bool
	Difficulty *float64
	AnsweredAt time.Time
}

type AbilityProfileView struct {
	Estimate irt.AbilityEstimate          `json:"estimate"`
	History  []*psy.AbilityEstimateRecord `json:"history"`
}

type AbilityService interface {
	RecordResponse(ctx context.Context, in RecordResponseInput) (irt.AbilityEstimate, error)
	Estimate(ctx context.Context, learnerID string) (irt.AbilityEstimate, error)
	Profile(ctx context.Context, learnerID string) (*AbilityProfileView, error)
	OptimalDifficulty(ctx context.Context, learnerID string) (irt.DifficultyRecommendation, error)
}

type abilityService struct {
	log       *logger.Logger
	cfg       config.AbilityConfig
	profiles  repos.AbilityProfileRepo
	responses repos.ResponseRepo
	items     itembank.Store
	estimator *irt.AbilityEstimator
	selector  *irt.DifficultySelector
	locks     *learnerLocks
}

func NewAbilityService(
	baseLog *logger.Logger,
	cfg config.Config,
	profiles repos.AbilityProfileRepo,
	responses repos.ResponseRepo,
	items itembank.Store,
) AbilityService {
	model := irt.Model{Discrimination: cfg.Model.Discrimination, Guessing: cfg.Model.Guessing}
	return &abilityService{
		log:       baseLog.With("service", "AbilityService"),
		cfg:       cfg.Ability,
		profiles:  profiles,
		responses: responses,
		items:     items,
		estimator: irt.NewAbilityEstimator(model, cfg.Ability),
		selector:  irt.NewDifficultySelector(model, cfg.Difficulty),
		locks:     newLearnerLocks(),
	}
}

func (s *abilityService) RecordResponse(ctx context.Context, in RecordResponseInput) (est irt.AbilityEstimate, err error) {
	ctx, span := startSpan(ctx, "ability.record_response", attribute.String("item.id", in.ItemID))
	defer func() { endSpan(span, err) }()

	in.LearnerID = strings.TrimSpace(in.LearnerID)
	in.ItemID = strings.TrimSpace(in.ItemID)
	if in.LearnerID == "" || in.ItemID == "" {
		return irt.AbilityEstimate{}, psy.Configuration("record response", "learner id and item id are required")
	}

	unlock := s.locks.Lock(in.LearnerID)
	defer unlock()

	difficulty := 0.0
	if in.Difficulty != nil {
		difficulty = *in.Difficulty
	} else if p := s.itemParams(ctx, in.ItemID); p != nil {
		difficulty = p.Difficulty
	}
	row := &psy.ItemResponse{
		LearnerID:  in.LearnerID,
		ItemID:     in.ItemID,
		Correct:    in.Correct,
		Difficulty: difficulty,
		AnsweredAt: in.AnsweredAt,
	}
	if err := s.responses.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		return irt.AbilityEstimate{}, err
	}
	est, err = s.compute(ctx, in.LearnerID)
	if err != nil {
		return irt.AbilityEstimate{}, err
	}
	if err := s.persist(ctx, in.LearnerID, est); err != nil {
		return irt.AbilityEstimate{}, err
	}
	return est, nil
}

// Estimate derives the current estimate from the response log. It writes
// nothing; the stored profile and its history move only when a response is
// recorded.
func (s *abilityService) Estimate(ctx context.Context, learnerID string) (est irt.AbilityEstimate, err error) {
	ctx, span := startSpan(ctx, "ability.estimate")
	defer func() { endSpan(span, err) }()

	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return irt.AbilityEstimate{}, psy.Configuration("estimate ability", "learner id is required")
	}
	return s.compute(ctx, learnerID)
}

func (s *abilityService) compute(ctx context.Context, learnerID string) (irt.AbilityEstimate, error) {
	rows, err := s.responses.ListRecentByLearner(dbctx.Context{Ctx: ctx}, learnerID, s.cfg.ResponseWindow)
	if err != nil {
		return irt.AbilityEstimate{}, err
	}

	params := map[string]*irt.ItemParams{}
	responses := make([]irt.Response, 0, len(rows))
	for _, r := range rows {
		p, seen := params[r.ItemID]
		if !seen {
			if stored := s.itemParams(ctx, r.ItemID); stored != nil {
				p = &irt.ItemParams{
					Difficulty:     stored.Difficulty,
					Discrimination: stored.Discrimination,
					Guessing:       stored.Guessing,
				}
			}
			params[r.ItemID] = p
		}
		responses = append(responses, irt.Response{Correct: r.Correct, Difficulty: r.Difficulty, Params: p})
	}
	return s.estimator.Estimate(responses), nil
}

// persist refreshes the cached profile and appends one history entry per
// sufficient estimate. Callers hold the learner lock.
func (s *abilityService) persist(ctx context.Context, learnerID string, est irt.AbilityEstimate) error {
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now().UTC()
	profile := &psy.AbilityProfile{
		LearnerID:       learnerID,
		Ability:         est.Ability,
		StandardError:   est.StandardError,
		SampleSize:      est.SampleSize,
		Reliable:        est.Reliable,
		LastEstimatedAt: &now,
	}
	if err := s.profiles.Upsert(dbc, profile); err != nil {
		return err
	}
	if !est.InsufficientData {
		rec := &psy.AbilityEstimateRecord{
			LearnerID:     learnerID,
			Ability:       est.Ability,
			StandardError: est.StandardError,
			SampleSize:    est.SampleSize,
			EstimatedAt:   now,
		}
		if err := s.profiles.AppendHistory(dbc, rec, s.cfg.HistoryLimit); err != nil {
			return err
		}
	}
	observability.Current().IncAbilityEstimate(est.Reliable)
	s.log.Debug("ability estimated",
		"learner_id", learnerID,
		"ability", est.Ability,
		"standard_error", est.StandardError,
		"sample_size", est.SampleSize,
		"reliable", est.Reliable,
	)
	return nil
}

// itemParams reads calibrated parameters; item bank failures degrade to the
// model defaults.
func (s *abilityService) itemParams(ctx context.Context, itemID string) *psy.ItemParameters {
	if s.items == nil {
		return nil
	}
	p, ok, err := s.items.Get(ctx, itemID)
	if err != nil {
		logFor(ctx, s.log).Warn("item bank lookup failed; using default parameters", "item_id", itemID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return p
}

func (s *abilityService) Profile(ctx context.Context, learnerID string) (*AbilityProfileView, error) {
	est, err := s.Estimate(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	hist, err := s.profiles.ListHistory(dbctx.Context{Ctx: ctx}, strings.TrimSpace(learnerID), s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	return &AbilityProfileView{Estimate: est, History: hist}, nil
}

func (s *abilityService) OptimalDifficulty(ctx context.Context, learnerID string) (rec irt.DifficultyRecommendation, err error) {
	ctx, span := startSpan(ctx, "ability.optimal_difficulty")
	defer func() { endSpan(span, err) }()

	est, err := s.Estimate(ctx, learnerID)
	if err != nil {
		return irt.DifficultyRecommendation{}, err
	}
	rec = s.selector.Recommend(est)
	span.SetAttributes(attribute.String("difficulty.bucket", rec.Difficulty), attribute.Bool("difficulty.reliable", rec.Reliable))
	return rec, nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/itembank"
	repos "github.com/yungbote/neurobridge-psychometrics/internal/data/repos/psychometrics"
	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/irt"
	"github.com/yungbote/neurobridge-psychometrics/internal/observability"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

const (
	PassDaily  = "daily"
	PassWeekly = "weekly"
)

// RecalibrationReport summarizes one batch pass. Item failures are counted,
// never propagated.
type RecalibrationReport struct {
	Pass         string    `json:"pass"`
	Attempted    int       `json:"attempted"`
	Calibrated   int       `json:"calibrated"`
	Insufficient int       `json:"insufficient"`
	Failed       int       `json:"failed"`
	Errors       int       `json:"errors"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

type CalibrationService interface {
	CalibrateItem(ctx context.Context, itemID string) (irt.CalibrationResult, error)
	Parameters(ctx context.Context, itemID string) (*psy.ItemParameters, error)
	RunPass(ctx context.Context, pass string) (RecalibrationReport, error)
}

type calibrationService struct {
	log        *logger.Logger
	cfg        config.RecalibrationConfig
	responses  repos.ResponseRepo
	params     repos.ItemParametersRepo
	items      itembank.Store
	calibrator irt.Calibrator
	now        func() time.Time
}

func NewCalibrationService(
	baseLog *logger.Logger,
	cfg config.Config,
	responses repos.ResponseRepo,
	params repos.ItemParametersRepo,
	items itembank.Store,
	calibrator irt.Calibrator,
) CalibrationService {
	return &calibrationService{
		log:        baseLog.With("service", "CalibrationService", "calibrator", calibrator.Name()),
		cfg:        cfg.Recalibration,
		responses:  responses,
		params:     params,
		items:      items,
		calibrator: calibrator,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CalibrateItem recalibrates one item from all of its recorded outcomes. An
// uncalibratable item is a result, not an error; the item keeps its previous
// parameters (if any) and is retried on the next pass.
func (s *calibrationService) CalibrateItem(ctx context.Context, itemID string) (res irt.CalibrationResult, err error) {
	ctx, span := startSpan(ctx, "calibration.calibrate_item", attribute.String("item.id", itemID))
	defer func() { endSpan(span, err) }()

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return irt.CalibrationResult{}, psy.Configuration("calibrate item", "item id is required")
	}
	outcomes, err := s.responses.ListOutcomesByItem(dbctx.Context{Ctx: ctx}, itemID)
	if err != nil {
		return irt.CalibrationResult{}, err
	}
	res = s.calibrator.Calibrate(outcomes)
	if res.Calibrated {
		observability.Current().IncCalibration("calibrated")
	} else {
		observability.Current().IncCalibration(res.Reason)
	}
	span.SetAttributes(attribute.Bool("calibration.calibrated", res.Calibrated), attribute.Int("calibration.samples", res.Current))

	if !res.Calibrated {
		switch res.Reason {
		case irt.ReasonCalibrationFailed:
			s.log.Warn("item calibration failed", "item_id", itemID, "samples", res.Current, "p", res.PValue)
		default:
			s.log.Debug("item calibration skipped", "item_id", itemID, "reason", res.Reason, "samples", res.Current)
		}
		return res, nil
	}

	row := &psy.ItemParameters{
		ItemID:         itemID,
		Difficulty:     res.Parameters.Difficulty,
		Discrimination: res.Parameters.Discrimination,
		Guessing:       res.Parameters.Guessing,
		SampleSize:     res.Current,
		CalibratedAt:   s.now(),
	}
	if err := s.items.Set(ctx, row); err != nil {
		return irt.CalibrationResult{}, fmt.Errorf("calibration: store %s: %w", itemID, err)
	}
	s.log.Info("item calibrated", "item_id", itemID, "difficulty", row.Difficulty, "samples", row.SampleSize)
	return res, nil
}

func (s *calibrationService) Parameters(ctx context.Context, itemID string) (*psy.ItemParameters, error) {
	p, ok, err := s.items.Get(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, psy.NewError(psy.CodeNotFound, "item parameters", "item "+itemID+" has not been calibrated", nil)
	}
	return p, nil
}

// RunPass executes the daily (never calibrated) or weekly (stale) pass with
// bounded concurrency.
func (s *calibrationService) RunPass(ctx context.Context, pass string) (rep RecalibrationReport, err error) {
	ctx, span := startSpan(ctx, "calibration.run_pass", attribute.String("recalibration.pass", pass))
	defer func() { endSpan(span, err) }()

	rep = RecalibrationReport{Pass: pass, StartedAt: s.now()}
	dbc := dbctx.Context{Ctx: ctx}

	var ids []string
	switch pass {
	case PassDaily:
		ids, err = s.responses.ListUncalibratedItemIDs(dbc, s.cfg.DailyLimit)
	case PassWeekly:
		ids, err = s.params.ListCalibratedBefore(dbc, s.now().Add(-s.cfg.WeeklyStaleAfter), s.cfg.WeeklyLimit)
	default:
		return rep, psy.Configuration("recalibration", fmt.Sprintf("unknown pass %q", pass))
	}
	if err != nil {
		return rep, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			res, cerr := s.CalibrateItem(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			rep.Attempted++
			switch {
			case cerr != nil:
				rep.Errors++
				observability.Current().IncCalibration("error")
				s.log.Warn("recalibration item error", "pass", pass, "item_id", id, "error", cerr)
			case res.Calibrated:
				rep.Calibrated++
			case res.Reason == irt.ReasonInsufficientData:
				rep.Insufficient++
			default:
				rep.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()
	rep.FinishedAt = s.now()
	status := "ok"
	if ctx.Err() != nil {
		status = "canceled"
	}
	observability.Current().ObserveRecalibrationPass(pass, status, rep.FinishedAt.Sub(rep.StartedAt))

	s.log.Info("recalibration pass finished",
		"pass", pass,
		"attempted", rep.Attempted,
		"calibrated", rep.Calibrated,
		"insufficient", rep.Insufficient,
		"failed", rep.Failed,
		"errors", rep.Errors,
	)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	repos "github.com/yungbote/neurobridge-psychometrics/internal/data/repos/psychometrics"
	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/cpi"
	"github.com/yungbote/neurobridge-psychometrics/internal/observability"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type CompetencyService interface {
	CPI(ctx context.Context, learnerID string) (cpi.Result, error)
	Trends(ctx context.Context, learnerID string) (map[string]cpi.CompetencyTrend, error)
}

type competencyService struct {
	log        *logger.Logger
	ledger     repos.LedgerEventRepo
	engine     *cpi.Engine
	eventTypes []string
}

func NewCompetencyService(baseLog *logger.Logger, cfg config.Config, ledger repos.LedgerEventRepo) CompetencyService {
	return &competencyService{
		log:        baseLog.With("service", "CompetencyService"),
		ledger:     ledger,
		engine:     cpi.NewEngine(cfg.CPI),
		eventTypes: cfg.CPI.EventTypes,
	}
}

func (s *competencyService) events(ctx context.Context, learnerID string) ([]psy.LedgerEvent, error) {
	rows, err := s.ledger.ListByStudent(dbctx.Context{Ctx: ctx}, learnerID, s.eventTypes)
	if err != nil {
		return nil, err
	}
	out := make([]psy.LedgerEvent, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// CPI is always recomputed from the ledger. Integrity faults are surfaced,
// never degraded.
func (s *competencyService) CPI(ctx context.Context, learnerID string) (res cpi.Result, err error) {
	ctx, span := startSpan(ctx, "competency.cpi")
	defer func() { endSpan(span, err) }()

	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return cpi.Result{}, psy.Configuration("generate cpi", "learner id is required")
	}
	events, err := s.events(ctx, learnerID)
	if err != nil {
		return cpi.Result{}, err
	}
	res, err = s.engine.GenerateCPI(learnerID, events)
	if err != nil {
		s.logIntegrity(ctx, learnerID, err)
		return cpi.Result{}, err
	}
	span.SetAttributes(attribute.Int("cpi.assessments", res.AssessmentCount), attribute.Bool("cpi.drift", res.DriftDetected))
	observability.Current().IncCPI(res.DriftDetected)
	if res.DriftDetected {
		s.log.Info("cpi drift detected", "learner_id", learnerID, "cpi", *res.CPI, "smoothed", *res.SmoothedCPI)
	}
	return res, nil
}

func (s *competencyService) Trends(ctx context.Context, learnerID string) (out map[string]cpi.CompetencyTrend, err error) {
	ctx, span := startSpan(ctx, "competency.trends")
	defer func() { endSpan(span, err) }()

	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil, psy.Configuration("competency trends", "learner id is required")
	}
	events, err := s.events(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	out, err = s.engine.CalculateCompetencyTrends(learnerID, events)
	if err != nil {
		s.logIntegrity(ctx, learnerID, err)
		return nil, err
	}
	return out, nil
}

func (s *competencyService) logIntegrity(ctx context.Context, learnerID string, err error) {
	if psy.IsCode(err, psy.CodeDataIntegrity) {
		observability.Current().IncIntegrityFailure()
		logFor(ctx, s.log).Error("ledger integrity fault", "student_id", learnerID, "error", err)
	}
}

package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/contextmem"
	"github.com/yungbote/neurobridge-psychometrics/internal/data/itembank"
	repos "github.com/yungbote/neurobridge-psychometrics/internal/data/repos/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/data/repos/testutil"
	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/attention"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/config"
	"github.com/yungbote/neurobridge-psychometrics/internal/modules/psychometrics/irt"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
)

type fixture struct {
	db          *gorm.DB
	cfg         config.Config
	profiles    repos.AbilityProfileRepo
	responses   repos.ResponseRepo
	params      repos.ItemParametersRepo
	ledger      repos.LedgerEventRepo
	items       itembank.Store
	ability     AbilityService
	calibration CalibrationService
	challenge   ChallengeService
	competency  CompetencyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.IsolatedDB(t)
	log := testutil.Logger(t)
	cfg := config.Default()

	f := &fixture{
		db:        db,
		cfg:       cfg,
		profiles:  repos.NewAbilityProfileRepo(db, log),
		responses: repos.NewResponseRepo(db, log),
		params:    repos.NewItemParametersRepo(db, log),
		ledger:    repos.NewLedgerEventRepo(db, log),
	}
	f.items = itembank.NewTieredStore(itembank.NewMemoryStore(), itembank.NewRepoStore(f.params), log)

	calibrator, err := irt.NewCalibrator(cfg.Calibration, irt.DefaultModel())
	if err != nil {
		t.Fatalf("NewCalibrator: %v", err)
	}
	f.ability = NewAbilityService(log, cfg, f.profiles, f.responses, f.items)
	f.calibration = NewCalibrationService(log, cfg, f.responses, f.params, f.items, calibrator)
	f.challenge = NewChallengeService(log, f.ability, attention.NewSelector(cfg.Attention), contextmem.NewInMemory(cfg.Attention.Capacity))
	f.competency = NewCompetencyService(log, cfg, f.ledger)
	return f
}

func f64(v float64) *float64 { return &v }

func (f *fixture) record(t *testing.T, learnerID, itemID string, correct bool, difficulty float64) irt.AbilityEstimate {
	t.Helper()
	est, err := f.ability.RecordResponse(context.Background(), RecordResponseInput{
		LearnerID:  learnerID,
		ItemID:     itemID,
		Correct:    correct,
		Difficulty: f64(difficulty),
	})
	if err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	return est
}

func TestAbilityService_ThreeResponsesNotReliable(t *testing.T) {
	f := newFixture(t)
	learner := "learner-" + uuid.NewString()
	f.record(t, learner, "q1", true, -1)
	f.record(t, learner, "q2", true, 0)
	est := f.record(t, learner, "q3", false, 1)

	if est.Reliable || est.SampleSize != 3 {
		t.Fatalf("expected unreliable estimate on 3 responses: %+v", est)
	}
	profile, err := f.profiles.Get(dbctx.Context{Ctx: context.Background()}, learner)
	if err != nil || profile == nil {
		t.Fatalf("profile not persisted: %v", err)
	}
	if profile.SampleSize != 3 || profile.Reliable {
		t.Fatalf("profile: %+v", profile)
	}

	rec, err := f.ability.OptimalDifficulty(context.Background(), learner)
	if err != nil {
		t.Fatalf("OptimalDifficulty: %v", err)
	}
	if rec.Difficulty != irt.BucketMedium || rec.Reliable {
		t.Fatalf("expected medium fallback: %+v", rec)
	}
}

func TestAbilityService_ReliableRecommendation(t *testing.T) {
	f := newFixture(t)
	learner := "learner-" + uuid.NewString()
	testutil.SeedResponses(t, context.Background(), f.db, learner, "q-easy", testutil.Outcomes(40, 20), -1, time.Now().UTC().Add(-time.Hour))

	view, err := f.ability.Profile(context.Background(), learner)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !view.Estimate.Reliable || view.Estimate.Ability != 0 {
		t.Fatalf("expected reliable ability 0: %+v", view.Estimate)
	}
	if len(view.History) != 0 {
		t.Fatalf("reads must not write history: got=%d", len(view.History))
	}

	rec, err := f.ability.OptimalDifficulty(context.Background(), learner)
	if err != nil {
		t.Fatalf("OptimalDifficulty: %v", err)
	}
	if !rec.Reliable || rec.Difficulty != irt.BucketHard || rec.NumericalDifficulty != 0.5 {
		t.Fatalf("recommendation: %+v", rec)
	}
}

func TestAbilityService_ReadsLeaveHistoryUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learner := "learner-" + uuid.NewString()
	for i := 0; i < 5; i++ {
		f.record(t, learner, fmt.Sprintf("q%d", i), i%2 == 0, 0)
	}

	for i := 0; i < 5; i++ {
		if _, err := f.ability.OptimalDifficulty(ctx, learner); err != nil {
			t.Fatalf("OptimalDifficulty: %v", err)
		}
		if _, err := f.challenge.SelectChallenge(ctx, learner, SelectChallengeInput{
			Context:    attention.Features{SimulationType: "debate"},
			Candidates: candidatePool(),
		}); err != nil {
			t.Fatalf("SelectChallenge: %v", err)
		}
	}
	view, err := f.ability.Profile(ctx, learner)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	// The first two responses are below the three-response minimum.
	if len(view.History) != 3 {
		t.Fatalf("history: want=3 got=%d", len(view.History))
	}
	if view.Estimate.SampleSize != 5 {
		t.Fatalf("estimate sample size: %d", view.Estimate.SampleSize)
	}
	profile, err := f.profiles.Get(dbctx.Context{Ctx: ctx}, learner)
	if err != nil || profile == nil || profile.SampleSize != 5 {
		t.Fatalf("profile: %+v err=%v", profile, err)
	}

	other := "learner-" + uuid.NewString()
	if _, err := f.ability.Estimate(ctx, other); err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if p, err := f.profiles.Get(dbctx.Context{Ctx: ctx}, other); err == nil && p != nil {
		t.Fatalf("estimate without responses created a profile: %+v", p)
	}
}

func TestAbilityService_UsesCalibratedItemDifficulty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.items.Set(ctx, &psy.ItemParameters{ItemID: "q-cal", Difficulty: 1.7, Discrimination: 1, Guessing: 0.25}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	learner := "learner-" + uuid.NewString()
	if _, err := f.ability.RecordResponse(ctx, RecordResponseInput{LearnerID: learner, ItemID: "q-cal", Correct: true}); err != nil {
		t.Fatalf("RecordResponse: %v", err)
	}
	rows, err := f.responses.ListRecentByLearner(dbctx.Context{Ctx: ctx}, learner, 0)
	if err != nil || len(rows) != 1 {
		t.Fatalf("responses: %v %d", err, len(rows))
	}
	if rows[0].Difficulty != 1.7 {
		t.Fatalf("difficulty should come from the item bank, got %v", rows[0].Difficulty)
	}
}

func TestAbilityService_ConcurrentSubmissionsAreSerialized(t *testing.T) {
	f := newFixture(t)
	learner := "learner-" + uuid.NewString()
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.ability.RecordResponse(context.Background(), RecordResponseInput{
				LearnerID:  learner,
				ItemID:     fmt.Sprintf("q%d", i),
				Correct:    i%2 == 0,
				Difficulty: f64(0),
			})
		}(i)
	}
	wg.Wait()
	profile, err := f.profiles.Get(dbctx.Context{Ctx: context.Background()}, learner)
	if err != nil || profile == nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.SampleSize != 12 {
		t.Fatalf("last writer must see every response: sample size %d", profile.SampleSize)
	}
}

func TestCalibrationService_CalibrateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Hour)
	testutil.SeedResponses(t, ctx, f.db, "l1", "item-half", testutil.Outcomes(10, 5), 0, start)

	res, err := f.calibration.CalibrateItem(ctx, "item-half")
	if err != nil {
		t.Fatalf("CalibrateItem: %v", err)
	}
	if !res.Calibrated || res.Parameters.Difficulty != 0 {
		t.Fatalf("result: %+v", res)
	}
	stored, err := f.calibration.Parameters(ctx, "item-half")
	if err != nil || stored.SampleSize != 10 {
		t.Fatalf("Parameters: %+v err=%v", stored, err)
	}
	if _, err := f.calibration.Parameters(ctx, "item-none"); !psy.IsCode(err, psy.CodeNotFound) {
		t.Fatalf("uncalibrated item: want not_found got %v", err)
	}
}

func TestCalibrationService_RunPasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Hour)
	testutil.SeedResponses(t, ctx, f.db, "l1", "item-ok", testutil.Outcomes(10, 5), 0, start)
	testutil.SeedResponses(t, ctx, f.db, "l2", "item-perfect", testutil.Outcomes(10, 10), 0, start)
	testutil.SeedResponses(t, ctx, f.db, "l3", "item-few", testutil.Outcomes(4, 2), 0, start)

	rep, err := f.calibration.RunPass(ctx, PassDaily)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if rep.Attempted != 3 || rep.Calibrated != 1 || rep.Failed != 1 || rep.Insufficient != 1 {
		t.Fatalf("daily report: %+v", rep)
	}

	// Only failed and insufficient items stay uncalibrated.
	rep, err = f.calibration.RunPass(ctx, PassDaily)
	if err != nil || rep.Attempted != 2 {
		t.Fatalf("second daily: %+v err=%v", rep, err)
	}

	stale := &psy.ItemParameters{ItemID: "item-ok", Difficulty: 2, Discrimination: 1, Guessing: 0.25, SampleSize: 3,
		CalibratedAt: time.Now().UTC().Add(-8 * 24 * time.Hour)}
	if err := f.params.Upsert(dbctx.Context{Ctx: ctx}, stale); err != nil {
		t.Fatalf("Upsert stale: %v", err)
	}
	rep, err = f.calibration.RunPass(ctx, PassWeekly)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if rep.Attempted != 1 || rep.Calibrated != 1 {
		t.Fatalf("weekly report: %+v", rep)
	}
	got, err := f.params.Get(dbctx.Context{Ctx: ctx}, "item-ok")
	if err != nil || got.SampleSize != 10 || got.Difficulty != 0 {
		t.Fatalf("weekly pass should overwrite: %+v err=%v", got, err)
	}

	if _, err := f.calibration.RunPass(ctx, "hourly"); !psy.IsCode(err, psy.CodeConfiguration) {
		t.Fatalf("unknown pass: %v", err)
	}
}

func candidatePool() []attention.Candidate {
	return []attention.Candidate{
		{ID: "hard-debate", Features: attention.Features{SimulationType: "debate", Difficulty: f64(2.5)}},
		{ID: "mid-debate", Features: attention.Features{SimulationType: "debate", Difficulty: f64(0.5)}},
		{ID: "easy-debate", Features: attention.Features{SimulationType: "debate", Difficulty: f64(-2)}},
	}
}

func TestChallengeService_SelectUsesRecommendedDifficulty(t *testing.T) {
	f := newFixture(t)
	learner := "learner-" + uuid.NewString()
	testutil.SeedResponses(t, context.Background(), f.db, learner, "q", testutil.Outcomes(40, 20), -1, time.Now().UTC().Add(-time.Hour))

	out, err := f.challenge.SelectChallenge(context.Background(), learner, SelectChallengeInput{
		Context:    attention.Features{SimulationType: "debate"},
		Candidates: candidatePool(),
	})
	if err != nil {
		t.Fatalf("SelectChallenge: %v", err)
	}
	if out.Difficulty == nil || !out.Difficulty.Reliable {
		t.Fatalf("expected reliable recommendation: %+v", out.Difficulty)
	}
	if out.Challenge.ID != "mid-debate" {
		t.Fatalf("challenge: want=mid-debate got=%s", out.Challenge.ID)
	}

	if _, err := f.challenge.SelectChallenge(context.Background(), learner, SelectChallengeInput{}); !psy.IsCode(err, psy.CodeNoCandidates) {
		t.Fatalf("empty pool: %v", err)
	}
}

func TestChallengeService_InteractionsAndInsights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learner := "learner-" + uuid.NewString()

	if _, err := f.challenge.Insights(ctx, learner, attention.Features{}); !psy.IsCode(err, psy.CodeInsufficientData) {
		t.Fatalf("empty history: %v", err)
	}
	for i := 0; i < 25; i++ {
		hour := i % 24
		rec := attention.InteractionRecord{
			ChallengeID: fmt.Sprintf("c%d", i),
			Features:    attention.Features{SimulationType: "debate", Difficulty: f64(float64(i%5) - 2), TimeOfDay: &hour},
			Outcome:     &attention.Outcome{Score: float64(50 + i), Engagement: 0.6, LearningGain: 0.4},
		}
		if err := f.challenge.RecordInteraction(ctx, learner, rec); err != nil {
			t.Fatalf("RecordInteraction: %v", err)
		}
	}
	res, err := f.challenge.Insights(ctx, learner, attention.Features{SimulationType: "debate", Difficulty: f64(0)})
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if res.HistorySize != 20 || len(res.Heads) != 3 {
		t.Fatalf("insights: %+v", res)
	}

	bad := 30
	err = f.challenge.RecordInteraction(ctx, learner, attention.InteractionRecord{Features: attention.Features{TimeOfDay: &bad}})
	if !psy.IsCode(err, psy.CodeConfiguration) {
		t.Fatalf("invalid hour: %v", err)
	}
}

func TestCompetencyService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	learner := "student-" + uuid.NewString()

	res, err := f.competency.CPI(ctx, learner)
	if err != nil {
		t.Fatalf("CPI with no events: %v", err)
	}
	if res.CPI != nil || res.AssessmentCount != 0 {
		t.Fatalf("no-data result: %+v", res)
	}

	base := time.Now().UTC().Add(-24 * time.Hour)
	for i, score := range []float64{50, 52, 48, 70, 72, 74} {
		testutil.SeedLedgerEvent(t, ctx, f.db, learner, psy.EventChallengeEvaluated, fmt.Sprintf("hash-%d", i), base.Add(time.Duration(i)*time.Hour),
			psy.LedgerChallenge{CompetenciesAssessed: []psy.AssessedCompetency{{Competency: "empathy", Score: score}}})
	}
	testutil.SeedLedgerEvent(t, ctx, f.db, learner, "challenge_started", "", base, psy.LedgerChallenge{})

	res, err = f.competency.CPI(ctx, learner)
	if err != nil {
		t.Fatalf("CPI: %v", err)
	}
	if res.AssessmentCount != 6 || res.CPI == nil || *res.CPI != 0.61 {
		t.Fatalf("cpi: %+v", res)
	}
	if res.GrowthRate != 22 {
		t.Fatalf("growth: want=22 got=%v", res.GrowthRate)
	}
	trends, err := f.competency.Trends(ctx, learner)
	if err != nil {
		t.Fatalf("Trends: %v", err)
	}
	if trends["empathy"].Trend != "improving" {
		t.Fatalf("trend: %+v", trends["empathy"])
	}

	testutil.SeedLedgerEvent(t, ctx, f.db, learner, psy.EventChallengeEvaluated, "", base.Add(10*time.Hour),
		psy.LedgerChallenge{CompetenciesAssessed: []psy.AssessedCompetency{{Competency: "empathy", Score: 90}}})
	if _, err := f.competency.CPI(ctx, learner); !psy.IsCode(err, psy.CodeDataIntegrity) {
		t.Fatalf("missing hash must surface: %v", err)
	}
}

func TestLearnerLocks_ReleaseEntries(t *testing.T) {
	l := newLearnerLocks()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("learner-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter: want=50 got=%d", counter)
	}
	if l.size() != 0 {
		t.Fatalf("lock entries leaked: %d", l.size())
	}
}

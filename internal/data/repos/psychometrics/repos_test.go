package psychometrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-psychometrics/internal/data/repos/testutil"
	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
)

func TestAbilityProfileRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewAbilityProfileRepo(db, testutil.Logger(t))

	if got, err := repo.Get(dbc, "learner-a"); err != nil || got != nil {
		t.Fatalf("Get missing: got=%v err=%v", got, err)
	}

	now := time.Now().UTC()
	p := &psy.AbilityProfile{LearnerID: "learner-a", Ability: 0.4, StandardError: 0.8, SampleSize: 5, LastEstimatedAt: &now}
	if err := repo.Upsert(dbc, p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	p2 := &psy.AbilityProfile{LearnerID: "learner-a", Ability: 1.2, StandardError: 0.45, SampleSize: 12, Reliable: true, LastEstimatedAt: &now}
	if err := repo.Upsert(dbc, p2); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	got, err := repo.Get(dbc, "learner-a")
	if err != nil || got == nil {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if got.Ability != 1.2 || got.SampleSize != 12 || !got.Reliable {
		t.Fatalf("Upsert did not overwrite: %+v", got)
	}

	for i := 0; i < 5; i++ {
		rec := &psy.AbilityEstimateRecord{
			LearnerID:     "learner-a",
			Ability:       float64(i),
			StandardError: 1,
			SampleSize:    i + 3,
			EstimatedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.AppendHistory(dbc, rec, 3); err != nil {
			t.Fatalf("AppendHistory %d: %v", i, err)
		}
	}
	hist, err := repo.ListHistory(dbc, "learner-a", 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history trimmed: want=3 got=%d", len(hist))
	}
	if hist[0].Ability != 4 || hist[2].Ability != 2 {
		t.Fatalf("history order: first=%v last=%v", hist[0].Ability, hist[2].Ability)
	}
}

func TestItemParametersRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewItemParametersRepo(db, testutil.Logger(t))

	old := time.Now().UTC().Add(-10 * 24 * time.Hour)
	fresh := time.Now().UTC()
	rows := []*psy.ItemParameters{
		{ItemID: "item-old", Difficulty: 0.2, Discrimination: 1, Guessing: 0.25, SampleSize: 10, CalibratedAt: old},
		{ItemID: "item-older", Difficulty: -0.2, Discrimination: 1, Guessing: 0.25, SampleSize: 10, CalibratedAt: old.Add(-time.Hour)},
		{ItemID: "item-fresh", Difficulty: 1.1, Discrimination: 1, Guessing: 0.25, SampleSize: 30, CalibratedAt: fresh},
	}
	for _, r := range rows {
		if err := repo.Upsert(dbc, r); err != nil {
			t.Fatalf("Upsert %s: %v", r.ItemID, err)
		}
	}

	stale, err := repo.ListCalibratedBefore(dbc, fresh.Add(-7*24*time.Hour), 50)
	if err != nil {
		t.Fatalf("ListCalibratedBefore: %v", err)
	}
	if len(stale) != 2 || stale[0] != "item-older" {
		t.Fatalf("stale items: %v", stale)
	}
	if capped, err := repo.ListCalibratedBefore(dbc, fresh.Add(time.Hour), 1); err != nil || len(capped) != 1 {
		t.Fatalf("limit: got=%v err=%v", capped, err)
	}

	if err := repo.Upsert(dbc, &psy.ItemParameters{ItemID: "item-old", Difficulty: -1.5, Discrimination: 1, Guessing: 0.25, SampleSize: 40, CalibratedAt: fresh}); err != nil {
		t.Fatalf("Upsert recalibration: %v", err)
	}
	got, err := repo.Get(dbc, "item-old")
	if err != nil || got == nil || got.Difficulty != -1.5 || got.SampleSize != 40 {
		t.Fatalf("last write should win: got=%+v err=%v", got, err)
	}

	if err := repo.Delete(dbc, "item-old"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := repo.Get(dbc, "item-old"); err != nil || got != nil {
		t.Fatalf("after Delete: got=%v err=%v", got, err)
	}
}

func TestResponseRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewResponseRepo(db, testutil.Logger(t))
	params := NewItemParametersRepo(db, testutil.Logger(t))

	start := time.Now().UTC().Add(-time.Hour)
	testutil.SeedResponses(t, ctx, tx, "learner-b", "item-1", testutil.Outcomes(6, 4), 0.5, start)
	testutil.SeedResponses(t, ctx, tx, "learner-c", "item-2", testutil.Outcomes(3, 1), -0.5, start)
	if err := repo.Create(dbc, &psy.ItemResponse{LearnerID: "learner-b", ItemID: "item-3", Correct: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	recent, err := repo.ListRecentByLearner(dbc, "learner-b", 4)
	if err != nil {
		t.Fatalf("ListRecentByLearner: %v", err)
	}
	if len(recent) != 4 || recent[3].ItemID != "item-3" {
		t.Fatalf("recent window: len=%d", len(recent))
	}
	if !recent[0].AnsweredAt.Before(recent[3].AnsweredAt) {
		t.Fatalf("recent responses should be oldest first")
	}

	outcomes, err := repo.ListOutcomesByItem(dbc, "item-1")
	if err != nil {
		t.Fatalf("ListOutcomesByItem: %v", err)
	}
	correct := 0
	for _, ok := range outcomes {
		if ok {
			correct++
		}
	}
	if len(outcomes) != 6 || correct != 4 {
		t.Fatalf("outcomes: len=%d correct=%d", len(outcomes), correct)
	}

	if err := params.Upsert(dbc, &psy.ItemParameters{ItemID: "item-2", Discrimination: 1, Guessing: 0.25}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	ids, err := repo.ListUncalibratedItemIDs(dbc, 10)
	if err != nil {
		t.Fatalf("ListUncalibratedItemIDs: %v", err)
	}
	if fmt.Sprint(ids) != "[item-1 item-3]" {
		t.Fatalf("uncalibrated: %v", ids)
	}
}

func TestLedgerEventRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLedgerEventRepo(db, testutil.Logger(t))

	base := time.Now().UTC().Add(-2 * time.Hour)
	ch := psy.LedgerChallenge{
		CPISnapshot:          testutil.PtrFloat(0.6),
		CompetenciesAssessed: []psy.AssessedCompetency{{Competency: "empathy", Score: 72}},
	}
	testutil.SeedLedgerEvent(t, ctx, tx, "student-1", psy.EventChallengeEvaluated, "h2", base.Add(time.Hour), ch)
	testutil.SeedLedgerEvent(t, ctx, tx, "student-1", psy.EventChallengeEvaluated, "h1", base, ch)
	testutil.SeedLedgerEvent(t, ctx, tx, "student-1", "challenge_started", "h3", base, psy.LedgerChallenge{})
	testutil.SeedLedgerEvent(t, ctx, tx, "student-2", psy.EventChallengeEvaluated, "h4", base, ch)

	rows, err := repo.ListByStudent(dbc, "student-1", []string{psy.EventChallengeEvaluated})
	if err != nil {
		t.Fatalf("ListByStudent: %v", err)
	}
	if len(rows) != 2 || rows[0].Hash != "h1" || rows[1].Hash != "h2" {
		t.Fatalf("ledger order: %+v", rows)
	}
	got := rows[0].Challenge.Data()
	if got.CPISnapshot == nil || *got.CPISnapshot != 0.6 || len(got.CompetenciesAssessed) != 1 {
		t.Fatalf("challenge payload: %+v", got)
	}
	if all, err := repo.ListByStudent(dbc, "student-1", nil); err != nil || len(all) != 3 {
		t.Fatalf("all types: len=%d err=%v", len(all), err)
	}
}

func TestMapStoreError(t *testing.T) {
	if MapStoreError("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	if !psy.IsCode(MapStoreError("op", gorm.ErrRecordNotFound), psy.CodeNotFound) {
		t.Fatalf("record not found should map to not_found")
	}
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_item_parameters_item_id"}
	err := MapStoreError("op", fmt.Errorf("insert: %w", pgErr))
	if !psy.IsCode(err, psy.CodeInternal) || !errors.As(err, &pgErr) {
		t.Fatalf("unique violation: %v", err)
	}
	if !psy.IsCode(MapStoreError("op", context.DeadlineExceeded), psy.CodeInternal) {
		t.Fatalf("deadline should map to internal")
	}
}

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
)

func SeedResponses(tb testing.TB, ctx context.Context, tx *gorm.DB, learnerID, itemID string, outcomes []bool, difficulty float64, start time.Time) {
	tb.Helper()
	for i, ok := range outcomes {
		row := &psy.ItemResponse{
			ID:         uuid.New(),
			LearnerID:  learnerID,
			ItemID:     itemID,
			Correct:    ok,
			Difficulty: difficulty,
			AnsweredAt: start.Add(time.Duration(i) * time.Minute),
		}
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			tb.Fatalf("seed response: %v", err)
		}
	}
}

func SeedLedgerEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, eventType, hash string, ts time.Time, ch psy.LedgerChallenge) *psy.LedgerEvent {
	tb.Helper()
	ev := &psy.LedgerEvent{
		ID:        uuid.New(),
		StudentID: studentID,
		EventType: eventType,
		Timestamp: ts,
		Hash:      hash,
		Challenge: datatypes.NewJSONType(ch),
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed ledger event: %v", err)
	}
	return ev
}

func Outcomes(n, correct int) []bool {
	out := make([]bool, n)
	for i := 0; i < correct && i < n; i++ {
		out[i] = true
	}
	return out
}

func PtrFloat(v float64) *float64 { return &v }

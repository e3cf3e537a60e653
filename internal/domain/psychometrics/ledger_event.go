package psychometrics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventChallengeEvaluated is the ledger event type carrying competency scores.
const EventChallengeEvaluated = "challenge_evaluated"

// LedgerEvent is a read-only projection of the external evaluation ledger.
// This service never writes ledger rows.
type LedgerEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID string    `gorm:"column:student_id;not null;index:idx_ledger_student_ts,priority:1" json:"student_id"`
	EventType string    `gorm:"column:event_type;not null;index" json:"event_type"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_ledger_student_ts,priority:2" json:"timestamp"`
	Hash      string    `gorm:"column:hash" json:"hash"`

	Challenge datatypes.JSONType[LedgerChallenge] `gorm:"column:challenge" json:"challenge"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }

type LedgerChallenge struct {
	CPISnapshot          *float64             `json:"cpiSnapshot,omitempty"`
	CompetenciesAssessed []AssessedCompetency `json:"competenciesAssessed,omitempty"`
	Correctness          *float64             `json:"correctness,omitempty"`
}

type AssessedCompetency struct {
	Competency string  `json:"competency"`
	Score      float64 `json:"score"`
}

func (e *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

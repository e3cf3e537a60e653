package psychometrics

import (
	"gorm.io/gorm"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

// LedgerEventRepo reads the evaluation ledger. The ledger is owned by another
// system, so there are no write methods.
type LedgerEventRepo interface {
	ListByStudent(dbc dbctx.Context, studentID string, eventTypes []string) ([]*psy.LedgerEvent, error)
}

type ledgerEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerEventRepo(db *gorm.DB, baseLog *logger.Logger) LedgerEventRepo {
	return &ledgerEventRepo{db: db, log: baseLog.With("repo", "LedgerEventRepo")}
}

// ListByStudent returns the student's events in ledger order. An empty
// eventTypes returns every type.
func (r *ledgerEventRepo) ListByStudent(dbc dbctx.Context, studentID string, eventTypes []string) ([]*psy.LedgerEvent, error) {
	var out []*psy.LedgerEvent
	if studentID == "" {
		return out, nil
	}
	q := dbc.DB(r.db).Where("student_id = ?", studentID)
	if len(eventTypes) > 0 {
		q = q.Where("event_type IN ?", eventTypes)
	}
	if err := q.Order("timestamp ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, MapStoreError("list ledger events", err)
	}
	return out, nil
}

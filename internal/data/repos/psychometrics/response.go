package psychometrics

import (
	"time"

	"gorm.io/gorm"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type ResponseRepo interface {
	Create(dbc dbctx.Context, row *psy.ItemResponse) error

	ListRecentByLearner(dbc dbctx.Context, learnerID string, limit int) ([]*psy.ItemResponse, error)
	ListOutcomesByItem(dbc dbctx.Context, itemID string) ([]bool, error)
	ListUncalibratedItemIDs(dbc dbctx.Context, limit int) ([]string, error)
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{db: db, log: baseLog.With("repo", "ResponseRepo")}
}

func (r *responseRepo) Create(dbc dbctx.Context, row *psy.ItemResponse) error {
	if row == nil {
		return nil
	}
	if row.AnsweredAt.IsZero() {
		row.AnsweredAt = time.Now().UTC()
	}
	return MapStoreError("record response", dbc.DB(r.db).Create(row).Error)
}

// ListRecentByLearner returns up to limit of the learner's latest responses,
// oldest first.
func (r *responseRepo) ListRecentByLearner(dbc dbctx.Context, learnerID string, limit int) ([]*psy.ItemResponse, error) {
	var out []*psy.ItemResponse
	if learnerID == "" {
		return out, nil
	}
	q := dbc.DB(r.db).Where("learner_id = ?", learnerID).Order("answered_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, MapStoreError("list learner responses", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *responseRepo) ListOutcomesByItem(dbc dbctx.Context, itemID string) ([]bool, error) {
	var out []bool
	if itemID == "" {
		return out, nil
	}
	err := dbc.DB(r.db).
		Model(&psy.ItemResponse{}).
		Where("item_id = ?", itemID).
		Order("answered_at ASC").
		Pluck("correct", &out).Error
	if err != nil {
		return nil, MapStoreError("list item outcomes", err)
	}
	return out, nil
}

// ListUncalibratedItemIDs returns items that have responses but no stored
// parameters.
func (r *responseRepo) ListUncalibratedItemIDs(dbc dbctx.Context, limit int) ([]string, error) {
	t := dbc.DB(r.db)
	calibrated := t.Model(&psy.ItemParameters{}).Select("item_id")
	q := t.Model(&psy.ItemResponse{}).
		Distinct("item_id").
		Where("item_id NOT IN (?)", calibrated).
		Order("item_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []string
	if err := q.Pluck("item_id", &ids).Error; err != nil {
		return nil, MapStoreError("list uncalibrated items", err)
	}
	return ids, nil
}

package psychometrics

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type ItemParametersRepo interface {
	Get(dbc dbctx.Context, itemID string) (*psy.ItemParameters, error)
	Upsert(dbc dbctx.Context, row *psy.ItemParameters) error
	Delete(dbc dbctx.Context, itemID string) error

	ListCalibratedBefore(dbc dbctx.Context, before time.Time, limit int) ([]string, error)
}

type itemParametersRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemParametersRepo(db *gorm.DB, baseLog *logger.Logger) ItemParametersRepo {
	return &itemParametersRepo{db: db, log: baseLog.With("repo", "ItemParametersRepo")}
}

// Get returns nil without error for an item that was never calibrated.
func (r *itemParametersRepo) Get(dbc dbctx.Context, itemID string) (*psy.ItemParameters, error) {
	if itemID == "" {
		return nil, nil
	}
	var rows []*psy.ItemParameters
	if err := dbc.DB(r.db).Where("item_id = ?", itemID).Limit(1).Find(&rows).Error; err != nil {
		return nil, MapStoreError("get item parameters", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Upsert overwrites any previous calibration; the last write wins.
func (r *itemParametersRepo) Upsert(dbc dbctx.Context, row *psy.ItemParameters) error {
	if row == nil || row.ItemID == "" {
		return nil
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.CalibratedAt.IsZero() {
		row.CalibratedAt = now
	}
	row.UpdatedAt = now

	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"difficulty",
				"discrimination",
				"guessing",
				"sample_size",
				"calibrated_at",
				"updated_at",
			}),
		}).
		Create(row).Error
	return MapStoreError("upsert item parameters", err)
}

func (r *itemParametersRepo) Delete(dbc dbctx.Context, itemID string) error {
	if itemID == "" {
		return nil
	}
	err := dbc.DB(r.db).Where("item_id = ?", itemID).Delete(&psy.ItemParameters{}).Error
	return MapStoreError("delete item parameters", err)
}

// ListCalibratedBefore returns the item ids with the oldest calibrations first.
func (r *itemParametersRepo) ListCalibratedBefore(dbc dbctx.Context, before time.Time, limit int) ([]string, error) {
	var ids []string
	q := dbc.DB(r.db).
		Model(&psy.ItemParameters{}).
		Where("calibrated_at < ?", before).
		Order("calibrated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("item_id", &ids).Error; err != nil {
		return nil, MapStoreError("list stale items", err)
	}
	return ids, nil
}

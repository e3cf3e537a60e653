package psychometrics

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type AbilityProfileRepo interface {
	Get(dbc dbctx.Context, learnerID string) (*psy.AbilityProfile, error)
	Upsert(dbc dbctx.Context, row *psy.AbilityProfile) error

	AppendHistory(dbc dbctx.Context, rec *psy.AbilityEstimateRecord, limit int) error
	ListHistory(dbc dbctx.Context, learnerID string, limit int) ([]*psy.AbilityEstimateRecord, error)
}

type abilityProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAbilityProfileRepo(db *gorm.DB, baseLog *logger.Logger) AbilityProfileRepo {
	return &abilityProfileRepo{db: db, log: baseLog.With("repo", "AbilityProfileRepo")}
}

// Get returns nil without error when the learner has no profile yet.
func (r *abilityProfileRepo) Get(dbc dbctx.Context, learnerID string) (*psy.AbilityProfile, error) {
	if learnerID == "" {
		return nil, nil
	}
	var rows []*psy.AbilityProfile
	if err := dbc.DB(r.db).Where("learner_id = ?", learnerID).Limit(1).Find(&rows).Error; err != nil {
		return nil, MapStoreError("get ability profile", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *abilityProfileRepo) Upsert(dbc dbctx.Context, row *psy.AbilityProfile) error {
	if row == nil || row.LearnerID == "" {
		return nil
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "learner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"ability",
				"standard_error",
				"sample_size",
				"reliable",
				"last_estimated_at",
				"updated_at",
			}),
		}).
		Create(row).Error
	return MapStoreError("upsert ability profile", err)
}

// AppendHistory inserts rec and trims the learner's history to the newest
// limit entries. A limit <= 0 keeps everything.
func (r *abilityProfileRepo) AppendHistory(dbc dbctx.Context, rec *psy.AbilityEstimateRecord, limit int) error {
	if rec == nil || rec.LearnerID == "" {
		return nil
	}
	if rec.EstimatedAt.IsZero() {
		rec.EstimatedAt = time.Now().UTC()
	}
	t := dbc.DB(r.db)
	if err := t.Create(rec).Error; err != nil {
		return MapStoreError("append ability history", err)
	}
	if limit <= 0 {
		return nil
	}
	keep := t.Model(&psy.AbilityEstimateRecord{}).
		Select("id").
		Where("learner_id = ?", rec.LearnerID).
		Order("estimated_at DESC").
		Limit(limit)
	err := t.Where("learner_id = ? AND id NOT IN (?)", rec.LearnerID, keep).
		Delete(&psy.AbilityEstimateRecord{}).Error
	return MapStoreError("trim ability history", err)
}

// ListHistory returns the newest entries first.
func (r *abilityProfileRepo) ListHistory(dbc dbctx.Context, learnerID string, limit int) ([]*psy.AbilityEstimateRecord, error) {
	var out []*psy.AbilityEstimateRecord
	if learnerID == "" {
		return out, nil
	}
	q := dbc.DB(r.db).Where("learner_id = ?", learnerID).Order("estimated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, MapStoreError("list ability history", err)
	}
	return out, nil
}

package psychometrics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AbilityProfile is the cached ability estimate for one learner. It is always
// re-derivable from the learner's response log.
type AbilityProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID string    `gorm:"column:learner_id;not null;uniqueIndex" json:"learner_id"`

	Ability       float64 `gorm:"column:ability;not null;default:0" json:"ability"`
	StandardError float64 `gorm:"column:standard_error;not null;default:2" json:"standard_error"`
	SampleSize    int     `gorm:"column:sample_size;not null;default:0" json:"sample_size"`
	Reliable      bool    `gorm:"column:reliable;not null;default:false" json:"reliable"`

	LastEstimatedAt *time.Time `gorm:"column:last_estimated_at;index" json:"last_estimated_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (AbilityProfile) TableName() string { return "ability_profile" }

func (p *AbilityProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AbilityEstimateRecord is one entry of a learner's bounded estimate history.
type AbilityEstimateRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID string    `gorm:"column:learner_id;not null;index:idx_ability_history_learner,priority:1" json:"learner_id"`

	Ability       float64 `gorm:"column:ability;not null" json:"ability"`
	StandardError float64 `gorm:"column:standard_error;not null" json:"standard_error"`
	SampleSize    int     `gorm:"column:sample_size;not null" json:"sample_size"`

	EstimatedAt time.Time `gorm:"column:estimated_at;not null;index:idx_ability_history_learner,priority:2" json:"estimated_at"`
}

func (AbilityEstimateRecord) TableName() string { return "ability_estimate_history" }

func (r *AbilityEstimateRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

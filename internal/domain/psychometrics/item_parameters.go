package psychometrics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemParameters holds the last successful calibration of an item.
// Recalibration overwrites the row.
type ItemParameters struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID string    `gorm:"column:item_id;not null;uniqueIndex" json:"item_id"`

	Difficulty     float64 `gorm:"column:difficulty;not null;default:0" json:"difficulty"`
	Discrimination float64 `gorm:"column:discrimination;not null;default:1" json:"discrimination"`
	Guessing       float64 `gorm:"column:guessing;not null;default:0.25" json:"guessing"`
	SampleSize     int     `gorm:"column:sample_size;not null;default:0" json:"sample_size"`

	CalibratedAt time.Time `gorm:"column:calibrated_at;not null;index" json:"calibrated_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (ItemParameters) TableName() string { return "item_parameters" }

func (p *ItemParameters) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ItemResponse is one recorded submission. The response log is the source
// both ability estimates and item calibrations are derived from.
type ItemResponse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID string    `gorm:"column:learner_id;not null;index:idx_item_response_learner,priority:1" json:"learner_id"`
	ItemID    string    `gorm:"column:item_id;not null;index" json:"item_id"`

	Correct    bool    `gorm:"column:correct;not null" json:"correct"`
	Difficulty float64 `gorm:"column:difficulty;not null;default:0" json:"difficulty"`

	AnsweredAt time.Time `gorm:"column:answered_at;not null;index:idx_item_response_learner,priority:2" json:"answered_at"`
}

func (ItemResponse) TableName() string { return "item_responses" }

func (r *ItemResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

package models

import (
	"github.com/fedinode/fedinode/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// A Redelivery is a pending attempt to resend a logged DeliveryFailure.
// Redeliveries are created by the redelivery worker as it reads the failure
// log. Delivered rows are soft deleted so the failure is not enqueued again.
type Redelivery struct {
	Request
	DeletedAt gorm.DeletedAt `gorm:"index"`

	FailureID snowflake.ID     `gorm:"uniqueIndex;not null"`
	Failure   *DeliveryFailure `gorm:"constraint:OnDelete:CASCADE;<-:false"`
}

type Redeliveries struct {
	db *gorm.DB
}

func NewRedeliveries(db *gorm.DB) *Redeliveries {
	return &Redeliveries{db: db}
}

// Enqueue creates a Redelivery for up to limit logged failures that have
// never been enqueued, oldest first, and returns the number created. Failures
// may commit out of id order; any failure without a Redelivery row, deleted
// or not, is eligible.
func (r *Redeliveries) Enqueue(limit int) (int, error) {
	var enqueued int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var failures []DeliveryFailure
		if err := tx.Select("id").
			Where("NOT EXISTS (SELECT 1 FROM redeliveries WHERE redeliveries.failure_id = delivery_failures.id)").
			Order("id").Limit(limit).Find(&failures).Error; err != nil {
			return err
		}
		for _, f := range failures {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "failure_id"}},
				DoNothing: true,
			}).Create(&Redelivery{FailureID: f.ID})
			if res.Error != nil {
				return res.Error
			}
			enqueued += int(res.RowsAffected)
		}
		return nil
	})
	return enqueued, err
}

package models

import (
	"errors"
	"time"

	"github.com/fedinode/fedinode/internal/snowflake"
	"gorm.io/gorm"
)

// ErrAppendOnly is returned by attempts to modify a DeliveryFailure.
var ErrAppendOnly = errors.New("delivery failures are append only")

// A DeliveryFailure records an activity that could not be delivered to a
// remote inbox. The log is append only.
type DeliveryFailure struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	// Username is the local actor the activity was delivered on behalf of.
	Username   string `gorm:"size:64;index;not null"`
	ActivityID string `gorm:"size:255;not null;default:''"`
	Inbox      string `gorm:"size:255;not null;default:''"`
	// Activity is the serialised activity, kept for redelivery.
	Activity []byte
	Error    string `gorm:"type:text"`
}

func (*DeliveryFailure) BeforeUpdate(*gorm.DB) error { return ErrAppendOnly }
func (*DeliveryFailure) BeforeDelete(*gorm.DB) error { return ErrAppendOnly }

type DeliveryFailures struct {
	db *gorm.DB
}

func NewDeliveryFailures(db *gorm.DB) *DeliveryFailures {
	return &DeliveryFailures{db: db}
}

// Log appends failure to the log.
func (d *DeliveryFailures) Log(failure *DeliveryFailure) error {
	if failure.ID == 0 {
		failure.ID = snowflake.Now()
	}
	return d.db.Create(failure).Error
}

// ForUsername returns the most recent failures logged for username, newest first.
func (d *DeliveryFailures) ForUsername(username string, limit int) ([]DeliveryFailure, error) {
	var failures []DeliveryFailure
	err := d.db.Where("username = ?", username).Order("id desc").Limit(limit).Find(&failures).Error
	return failures, err
}

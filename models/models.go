// Package models contains the gorm backed persistence for the node.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Request is embedded in work queue rows processed by the workers package.
// Rows are deleted when processed; a failed attempt bumps Attempts and keeps
// the error in LastResult.
type Request struct {
	ID          uint32 `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Attempts    uint32 `gorm:"not null;default:0"`
	LastAttempt time.Time
	LastResult  string `gorm:"type:text"`
}

// forEach calls each fn in order with tx, stopping at the first error.
func forEach(tx *gorm.DB, fns ...func(*gorm.DB) error) error {
	for _, fn := range fns {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return nil
}

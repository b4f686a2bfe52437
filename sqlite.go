//go:build sqlite

package main

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultDSN = "fedinode.db"

func newDialector(dsn string) gorm.Dialector {
	return sqlite.Open(dsn)
}

// configureDB limits the pool to a single connection; concurrent writers
// queue on the busy timeout.
func configureDB(db *gorm.DB) error {
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return err
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

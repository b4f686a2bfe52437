//go:build !sqlite

package main

// mysql support

import (
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const defaultDSN = "fedinode:fedinode@tcp(localhost:3306)/fedinode"

func newDialector(dsn string) gorm.Dialector {
	return mysql.New(mysql.Config{
		DSN:                       mergeOptions(dsn, "charset=utf8mb4&parseTime=True&loc=UTC"),
		SkipInitializeWithVersion: false, // auto configure based on currently MySQL version
	})
}

// mergeOptions appends options to dsn, which may already carry some.
func mergeOptions(dsn, options string) string {
	if options == "" {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + options
	}
	return dsn + "?" + options
}

func configureDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

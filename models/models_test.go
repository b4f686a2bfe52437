package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockActor creates a local actor called name on domain whose password is
// its name.
func MockActor(t *testing.T, tx *gorm.DB, name, domain string) *Actor {
	t.Helper()
	actor, err := NewActors(tx).Create(name, domain, name)
	require.NoError(t, err)
	return actor
}

// setupTestDB returns a migrated in-memory database private to t.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	require.NoError(err)

	sqlDB, err := db.DB()
	require.NoError(err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(db.AutoMigrate(AllTables()...))
	return db
}

package models

import (
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
)

// Env carries the database and logger shared by handlers, workers and
// commands.
type Env struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Log returns the environment's logger, or the default logger if none was set.
func (e *Env) Log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

package workers

import (
	"time"

	"gorm.io/gorm"
)

// batchSize is the number of queued rows loaded at a time.
const batchSize = 100

// tally counts the outcome of one pass of process.
type tally struct {
	done, failed int
}

// process walks the queued rows selected by scope and calls fn on each.
// A row is deleted when fn succeeds; otherwise its attempt counters are
// bumped and the error is kept as its last result. The walk stops early
// when the context of db is cancelled.
func process[T any](db *gorm.DB, scope func(*gorm.DB) *gorm.DB, fn func(*gorm.DB, T) error) (tally, error) {
	var t tally
	var rows []T
	err := db.Scopes(scope).FindInBatches(&rows, batchSize, func(*gorm.DB, int) error {
		// fn must not inherit the batch query's conditions.
		tx := db.Session(&gorm.Session{NewDB: true})
		for _, row := range rows {
			if err := tx.Statement.Context.Err(); err != nil {
				return err
			}
			started := time.Now()
			if ferr := fn(tx, row); ferr != nil {
				t.failed++
				if err := tx.Model(row).UpdateColumns(map[string]any{
					"attempts":     gorm.Expr("attempts + 1"),
					"last_attempt": started,
					"last_result":  ferr.Error(),
				}).Error; err != nil {
					return err
				}
				continue
			}
			t.done++
			if err := tx.Delete(row).Error; err != nil {
				return err
			}
		}
		return nil
	}).Error
	return t, err
}

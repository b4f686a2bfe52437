package workers

import (
	"context"
	"errors"
	"time"

	"github.com/fedinode/fedinode/activitypub"
	"github.com/fedinode/fedinode/models"
	"gorm.io/gorm"
)

const (
	// DefaultMaxRedeliveryAttempts is the number of times a failed delivery is retried.
	DefaultMaxRedeliveryAttempts = 3

	// redeliveryBatch is the number of failures enqueued per pass.
	redeliveryBatch = 100
)

// NewRedeliveryProcessor retries deliveries recorded in the delivery failure
// log, signed as the actor that originally sent them, every interval. Each
// delivery is attempted at most maxAttempts times.
func NewRedeliveryProcessor(env *activitypub.Env, interval time.Duration, maxAttempts int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log := env.Log().With("worker", "redelivery")
		log.Info("started")
		defer log.Info("stopped")

		r := &redeliverer{env: env, maxAttempts: maxAttempts}
		db := env.DB.WithContext(ctx)
		for {
			if err := r.pass(db); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
				// continue
			}
		}
	}
}

type redeliverer struct {
	env         *activitypub.Env
	maxAttempts int
}

func (r *redeliverer) scope(db *gorm.DB) *gorm.DB {
	return db.Preload("Failure").Where("attempts < ?", r.maxAttempts)
}

// pass enqueues newly logged failures then attempts every pending redelivery once.
func (r *redeliverer) pass(db *gorm.DB) error {
	n, err := models.NewRedeliveries(db).Enqueue(redeliveryBatch)
	if err != nil {
		return err
	}
	if n > 0 {
		r.env.Log().Info("enqueued redeliveries", "count", n)
	}
	t, err := process(db, r.scope, r.redeliver)
	if t.done+t.failed > 0 {
		r.env.Log().Info("redelivery pass", "delivered", t.done, "failed", t.failed)
	}
	return err
}

func (r *redeliverer) redeliver(db *gorm.DB, req *models.Redelivery) error {
	failure := req.Failure
	if failure == nil {
		return nil
	}
	owner, err := models.NewActors(db).FindByName(failure.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// the sender no longer exists, nothing to sign with.
		r.env.Log().Warn("dropping redelivery", "username", failure.Username, "inbox", failure.Inbox)
		return nil
	}
	if err != nil {
		return err
	}
	client, err := r.env.NewClient(owner)
	if err != nil {
		return err
	}
	ctx := db.Statement.Context
	if err := client.Deliver(ctx, failure.Inbox, failure.Activity); err != nil {
		r.env.Log().Info("redelivery failed", "username", failure.Username, "activity", failure.ActivityID, "inbox", failure.Inbox, "attempts", req.Attempts+1, "err", err)
		return err
	}
	r.env.Log().Info("redelivered", "username", failure.Username, "activity", failure.ActivityID, "inbox", failure.Inbox)
	return nil
}

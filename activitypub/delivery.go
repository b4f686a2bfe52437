package activitypub

import (
	"context"

	"github.com/fedinode/fedinode/models"
	"golang.org/x/exp/slog"
)

// handleDeliveryFailure records that body could not be delivered to inbox on
// behalf of username. A failure to record the failure is logged and dropped.
func handleDeliveryFailure(ctx context.Context, store Store, logger *slog.Logger, username, activityID, inbox string, body []byte, deliveryErr error) {
	failure := &models.DeliveryFailure{
		Username:   username,
		ActivityID: activityID,
		Inbox:      inbox,
		Activity:   body,
		Error:      deliveryErr.Error(),
	}
	logger.Warn("delivery failed", "username", username, "activity", activityID, "inbox", inbox, "err", deliveryErr)
	if err := store.LogDeliveryFailure(context.WithoutCancel(ctx), failure); err != nil {
		logger.Error("failed to log delivery failure", "username", username, "activity", activityID, "inbox", inbox, "err", err)
	}
}

package activitypub

import (
	"net/http"

	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/internal/to"
	"github.com/fedinode/fedinode/models"
)

const (
	defaultNotificationsLimit = 20
	maxNotificationsLimit     = 100
)

// NotificationsIndex handles GET /users/{username}/notifications.
func NotificationsIndex(env *Env, owner *models.Actor, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		Limit  int `schema:"limit"`
		Offset int `schema:"offset"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	switch {
	case params.Limit <= 0:
		params.Limit = defaultNotificationsLimit
	case params.Limit > maxNotificationsLimit:
		params.Limit = maxNotificationsLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	notifications, err := models.NewNotifications(env.DB.WithContext(r.Context())).ForActor(owner.URI, params.Limit, params.Offset)
	if err != nil {
		return err
	}
	resp := make([]map[string]any, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, map[string]any{
			"id":                   n.ID,
			"type":                 string(n.Type),
			"originating_actor_id": n.OriginatingActorID,
			"reference_id":         n.ReferenceID,
			"seen":                 n.Seen,
			"created_at":           n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			"data":                 n.Data,
		})
	}
	return to.JSON(w, resp)
}

// NotificationsRead handles POST /users/{username}/notifications/read.
func NotificationsRead(env *Env, owner *models.Actor, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		IDs []string `json:"ids" schema:"ids"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if err := models.NewNotifications(env.DB.WithContext(r.Context())).MarkSeen(owner.URI, params.IDs); err != nil {
		return err
	}
	return to.JSON(w, map[string]any{"status": "ok"})
}

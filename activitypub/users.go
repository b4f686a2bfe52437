package activitypub

import (
	"errors"
	"net/http"

	ap "github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/internal/algorithms"
	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/internal/to"
	"github.com/fedinode/fedinode/models"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// findOwner returns the local actor named by the username URL parameter.
func findOwner(env *Env, r *http.Request) (*models.Actor, error) {
	actor, err := env.Store.FindActor(r.Context(), chi.URLParam(r, "username"))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, httpx.Error(http.StatusNotFound, errors.New("user not found"))
	case err != nil:
		return nil, err
	}
	return actor, nil
}

// Authenticated adapts a handler to require HTTP basic auth as the local
// actor named by the username URL parameter.
func Authenticated(fn func(*Env, *models.Actor, http.ResponseWriter, *http.Request) error) func(*Env, http.ResponseWriter, *http.Request) error {
	return func(env *Env, w http.ResponseWriter, r *http.Request) error {
		owner, err := findOwner(env, r)
		if err != nil {
			return err
		}
		username, password, ok := r.BasicAuth()
		if !ok || username != owner.Name || !owner.CheckPassword(password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+owner.Domain+`"`)
			return httpx.Error(http.StatusUnauthorized, errors.New("invalid credentials"))
		}
		return fn(env, owner, w, r)
	}
}

// UsersShow handles GET /users/{username}.
func UsersShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findOwner(env, r)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, map[string]any{
		"@context": []any{
			ap.Context,
			"https://w3id.org/security/v1",
		},
		"id":                actor.URI,
		"type":              "Person",
		"preferredUsername": actor.Name,
		"name":              actor.DisplayName,
		"summary":           actor.Summary,
		"url":               actor.URI,
		"inbox":             actor.Inbox(),
		"outbox":            actor.Outbox(),
		"followers":         actor.Followers(),
		"following":         actor.Following(),
		"published":         actor.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		"publicKey": map[string]any{
			"id":           actor.PublicKeyID(),
			"owner":        actor.URI,
			"publicKeyPem": string(actor.PublicKey),
		},
	})
}

// FollowersIndex handles GET /users/{username}/followers.
func FollowersIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findOwner(env, r)
	if err != nil {
		return err
	}
	followers, err := env.Store.Followers(r.Context(), actor.Name)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, map[string]any{
		"@context":   ap.Context,
		"id":         actor.Followers(),
		"type":       "OrderedCollection",
		"totalItems": len(followers),
		"orderedItems": algorithms.Map(followers, func(f models.Follower) string {
			return f.ActorID
		}),
	})
}

// FollowingIndex handles GET /users/{username}/following. The node does not
// track outbound follows so the collection is always empty.
func FollowingIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	actor, err := findOwner(env, r)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, map[string]any{
		"@context":     ap.Context,
		"id":           actor.Following(),
		"type":         "OrderedCollection",
		"totalItems":   0,
		"orderedItems": []any{},
	})
}

package activitypub

import (
	"net/http"

	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/go-chi/chi/v5"
)

// Routes returns the routes mounted under /users/{username}. inbox
// middleware, eg. rate limiting, is applied to the inbox alone.
func Routes(envFn func(*http.Request) *Env, inbox ...func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", httpx.HandlerFunc(envFn, UsersShow))
		r.With(inbox...).Post("/inbox", httpx.HandlerFunc(envFn, InboxCreate))
		r.Get("/outbox", httpx.HandlerFunc(envFn, OutboxIndex))
		r.Get("/followers", httpx.HandlerFunc(envFn, FollowersIndex))
		r.Get("/following", httpx.HandlerFunc(envFn, FollowingIndex))
		r.Get("/notes/{id}", httpx.HandlerFunc(envFn, NotesShow))

		r.Post("/notes", httpx.HandlerFunc(envFn, Authenticated(NotesCreate)))
		r.Put("/notes/{id}", httpx.HandlerFunc(envFn, Authenticated(NotesUpdate)))
		r.Delete("/notes/{id}", httpx.HandlerFunc(envFn, Authenticated(NotesDestroy)))
		r.Post("/notify", httpx.HandlerFunc(envFn, Authenticated(NotifyCreate)))
		r.Get("/notifications", httpx.HandlerFunc(envFn, Authenticated(NotificationsIndex)))
		r.Post("/notifications/read", httpx.HandlerFunc(envFn, Authenticated(NotificationsRead)))
	}
}

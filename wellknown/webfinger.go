// Package wellknown serves the /.well-known discovery documents.
package wellknown

import (
	"errors"
	"net/http"

	"github.com/fedinode/fedinode/activitypub"
	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/internal/webfinger"
	"github.com/go-json-experiment/json"
	"gorm.io/gorm"
)

// WebfingerShow handles GET /.well-known/webfinger?resource=acct:user@domain.
func WebfingerShow(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("missing resource"))
	}
	acct, err := webfinger.Parse(resource)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	actor, err := env.Store.FindActor(r.Context(), acct.User)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.Error(http.StatusNotFound, errors.New("user not found"))
	case err != nil:
		return err
	}
	if acct.Host != "" && acct.Host != actor.Domain {
		return httpx.Error(http.StatusNotFound, errors.New("user not found"))
	}

	doc := (&webfinger.Acct{User: actor.Name, Host: actor.Domain}).Document()
	doc.Aliases = []string{actor.URI}
	doc.Links[0].Href = actor.URI
	w.Header().Set("Content-Type", "application/jrd+json")
	return json.MarshalFull(w, doc)
}

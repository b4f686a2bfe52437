package wellknown

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fedinode/fedinode/activitypub"
	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/internal/to"
	"github.com/fedinode/fedinode/models"
	"github.com/go-chi/chi/v5"
)

// NodeInfoIndex handles GET /.well-known/nodeinfo.
func NodeInfoIndex(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"links": []any{
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.0", r.Host),
			},
		},
	})
}

// NodeInfoShow handles GET /nodeinfo/{version}.
func NodeInfoShow(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	if v := chi.URLParam(r, "version"); v != "2.0" {
		return httpx.Error(http.StatusNotFound, errors.New("unsupported version: "+v))
	}
	db := env.DB.WithContext(r.Context())
	var users, posts int64
	if err := db.Model(&models.Actor{}).Count(&users).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Note{}).Count(&posts).Error; err != nil {
		return err
	}
	// https://github.com/jhass/nodeinfo/blob/main/schemas/2.0/schema.json
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"version": "2.0",
		"software": map[string]any{
			"name":    "fedinode",
			"version": "0.0.0-devel",
		},
		"protocols": []any{"activitypub"},
		"services": map[string]any{
			"inbound":  []any{},
			"outbound": []any{},
		},
		"usage": map[string]any{
			"users": map[string]any{
				"total": users,
			},
			"localPosts": posts,
		},
		"openRegistrations": false,
		"metadata":          map[string]any{},
	})
}

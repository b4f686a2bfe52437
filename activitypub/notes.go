package activitypub

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	ap "github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/internal/algorithms"
	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/internal/mentions"
	"github.com/fedinode/fedinode/internal/snowflake"
	"github.com/fedinode/fedinode/internal/to"
	"github.com/fedinode/fedinode/models"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// addressing returns the to and cc of a note by owner with visibility v
// that mentions the actors in mentioned.
func addressing(owner *models.Actor, v models.Visibility, mentioned []string) ([]string, []string) {
	switch v {
	case models.Public:
		return []string{ap.Public}, append([]string{owner.Followers()}, mentioned...)
	case models.Unlisted:
		return []string{owner.Followers()}, append([]string{ap.Public}, mentioned...)
	case models.FollowersOnly:
		return []string{owner.Followers()}, mentioned
	default:
		return mentioned, nil
	}
}

// visibilityOf infers the visibility of an activity from its addressing.
func visibilityOf(owner *models.Actor, activity *ap.Activity) models.Visibility {
	for _, s := range activity.To {
		if s == ap.Public {
			return models.Public
		}
	}
	switch {
	case activity.Addressed(ap.Public):
		return models.Unlisted
	case activity.Addressed(owner.Followers()):
		return models.FollowersOnly
	default:
		return models.Direct
	}
}

// localMentions returns the local actors mentioned in content.
func localMentions(ctx context.Context, store Store, owner *models.Actor, content string) ([]*models.Actor, error) {
	var actors []*models.Actor
	for _, acct := range mentions.Parse(content) {
		if acct.Host != "" && acct.Host != owner.Domain {
			continue
		}
		actor, err := store.FindActor(ctx, acct.User)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		actors = append(actors, actor)
	}
	return actors, nil
}

// recordMentions records the mentions in a note authored by owner. Local
// actors are notified; remote handles are recorded by their acct URI.
func recordMentions(ctx context.Context, store Store, owner *models.Actor, note *models.Note) error {
	for _, acct := range mentions.Parse(note.Content) {
		if acct.Host != "" && acct.Host != owner.Domain {
			if err := store.RecordMention(ctx, note.URI, acct.String(), owner.URI); err != nil {
				return err
			}
			continue
		}
		actor, err := store.FindActor(ctx, acct.User)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := store.RecordMention(ctx, note.URI, actor.URI, owner.URI); err != nil {
			return err
		}
		if actor.URI == owner.URI {
			continue
		}
		data := map[string]any{"note": note.URI, "content": note.Content}
		if err := store.Notify(ctx, actor.URI, models.MentionNotification, owner.URI, note.URI, data); err != nil {
			return err
		}
	}
	return nil
}

type noteParams struct {
	Content    string `json:"content" schema:"content"`
	InReplyTo  string `json:"inReplyTo" schema:"inReplyTo"`
	Visibility string `json:"visibility" schema:"visibility"`
}

// NotesCreate handles POST /users/{username}/notes.
func NotesCreate(env *Env, owner *models.Actor, w http.ResponseWriter, r *http.Request) error {
	var params noteParams
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Content == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("content is required"))
	}
	visibility, err := models.ParseVisibility(params.Visibility)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}

	ctx := r.Context()
	mentioned, err := localMentions(ctx, env.Store, owner, params.Content)
	if err != nil {
		return err
	}
	id := snowflake.Now()
	note := &models.Note{
		ID:           id,
		URI:          owner.NoteURI(id),
		Username:     owner.Name,
		AttributedTo: owner.URI,
		Content:      params.Content,
		InReplyTo:    params.InReplyTo,
		Visibility:   visibility,
	}
	note.To, note.CC = addressing(owner, visibility, algorithms.Map(mentioned, func(a *models.Actor) string {
		return a.URI
	}))
	if err := env.Store.CreateNote(ctx, note); err != nil {
		return err
	}
	if err := recordMentions(ctx, env.Store, owner, note); err != nil {
		return err
	}

	create := &ap.Activity{
		ID:        note.URI + "/activity",
		Type:      ap.Create,
		Actor:     ap.RefID(owner.URI),
		Object:    ap.RefObject(note.AsNote().Map()),
		To:        note.To,
		CC:        note.CC,
		Published: note.Published,
	}
	if _, err := env.Distributor().Deliver(ctx, owner, create); err != nil {
		return err
	}
	w.Header().Set("Content-Type", ap.ContentType)
	w.WriteHeader(http.StatusCreated)
	return to.ActivityJSON(w, create.Map())
}

// NotesUpdate handles PUT /users/{username}/notes/{id}.
func NotesUpdate(env *Env, owner *models.Actor, w http.ResponseWriter, r *http.Request) error {
	note, err := ownedNote(env, owner, r)
	if err != nil {
		return err
	}
	var params noteParams
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Content == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("content is required"))
	}
	ctx := r.Context()
	note.Content = params.Content
	if err := env.Store.SaveNote(ctx, note); err != nil {
		return err
	}

	update := &ap.Activity{
		ID:        owner.ActivityURI(snowflake.Now().String()),
		Type:      ap.Update,
		Actor:     ap.RefID(owner.URI),
		Object:    ap.RefObject(note.AsNote().Map()),
		To:        note.To,
		CC:        note.CC,
		Published: time.Now(),
	}
	if _, err := env.Distributor().Deliver(ctx, owner, update); err != nil {
		return err
	}
	return to.ActivityJSON(w, update.Map())
}

// NotesDestroy handles DELETE /users/{username}/notes/{id}.
func NotesDestroy(env *Env, owner *models.Actor, w http.ResponseWriter, r *http.Request) error {
	note, err := ownedNote(env, owner, r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	if err := env.Store.DeleteNote(ctx, note.URI); err != nil {
		return err
	}

	del := &ap.Activity{
		ID:    owner.ActivityURI(snowflake.Now().String()),
		Type:  ap.Delete,
		Actor: ap.RefID(owner.URI),
		Object: ap.RefObject(map[string]any{
			"id":   note.URI,
			"type": "Tombstone",
		}),
		To: note.To,
		CC: note.CC,
	}
	if _, err := env.Distributor().Deliver(ctx, owner, del); err != nil {
		return err
	}
	return to.ActivityJSON(w, del.Map())
}

// NotesShow handles GET /users/{username}/notes/{id}. Only public and
// unlisted notes are served.
func NotesShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	note, err := findNote(env, chi.URLParam(r, "username"), r)
	if err != nil {
		return err
	}
	switch note.Visibility {
	case models.Public, models.Unlisted:
		m := note.AsNote().Map()
		m["@context"] = ap.Context
		return to.ActivityJSON(w, m)
	default:
		return httpx.Error(http.StatusNotFound, errors.New("note not found"))
	}
}

func findNote(env *Env, username string, r *http.Request) (*models.Note, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, httpx.Error(http.StatusNotFound, errors.New("note not found"))
	}
	note, err := models.NewNotes(env.DB.WithContext(r.Context())).FindByID(username, snowflake.ID(id))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, httpx.Error(http.StatusNotFound, errors.New("note not found"))
	case err != nil:
		return nil, err
	}
	return note, nil
}

// ownedNote returns the note named in the request if it is attributed to owner.
func ownedNote(env *Env, owner *models.Actor, r *http.Request) (*models.Note, error) {
	note, err := findNote(env, owner.Name, r)
	if err != nil {
		return nil, err
	}
	if note.AttributedTo != owner.URI {
		return nil, httpx.Error(http.StatusForbidden, errors.New("note is not attributed to you"))
	}
	return note, nil
}

package activitypub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fedinode/fedinode/internal/httpsig"
	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/internal/mentions"
	"github.com/fedinode/fedinode/internal/to"
	"github.com/fedinode/fedinode/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"

	ap "github.com/fedinode/fedinode/internal/activitypub"
)

// InboxCreate handles POST /users/{username}/inbox.
func InboxCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return httpx.Error(http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		}
		return httpx.Error(http.StatusBadRequest, err)
	}

	ctx := r.Context()
	owner, err := env.Store.FindActor(ctx, chi.URLParam(r, "username"))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	keyID, err := httpsig.Verify(r, body, env.KeyFunc(owner))
	switch {
	case errors.Is(err, httpsig.ErrKeyNotFound):
		env.Log().Info("inbox: key not found", "err", err)
		return httpx.Error(http.StatusBadRequest, errors.New("public key not found"))
	case errors.Is(err, httpsig.ErrInvalidSignature):
		env.Log().Info("inbox: invalid signature", "err", err)
		return httpx.Error(http.StatusUnauthorized, errors.New("invalid signature"))
	case err != nil:
		env.Log().Info("inbox: malformed signature", "err", err)
		return httpx.Error(http.StatusBadRequest, errors.New("signature verification failed"))
	}

	if owner == nil {
		return httpx.Error(http.StatusNotFound, errors.New("user not found"))
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	activity, err := ap.Parse(doc)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if signer := trimKeyID(keyID); signer != activity.Actor.ID() {
		return httpx.Error(http.StatusUnauthorized, fmt.Errorf("signer %q does not match actor %q", signer, activity.Actor.ID()))
	}

	processor, err := env.InboxProcessor(owner)
	if err != nil {
		return err
	}
	switch err := processor.Process(ctx, activity); {
	case errors.Is(err, ap.ErrInvalidURL):
		return httpx.Error(http.StatusBadRequest, errors.New("invalid inbox URL"))
	case errors.Is(err, ap.ErrMalformedActivity):
		return httpx.Error(http.StatusBadRequest, err)
	case err != nil:
		return err
	}
	return to.JSON(w, map[string]any{"status": "ok"})
}

// InboxProcessor applies the side effects of activities delivered to the
// inbox of a local actor.
type InboxProcessor struct {
	store  Store
	owner  *models.Actor
	client *ap.Client
	policy *ap.Policy
	logger *slog.Logger
}

// InboxProcessor returns a processor for activities addressed to owner.
func (e *Env) InboxProcessor(owner *models.Actor) (*InboxProcessor, error) {
	client, err := e.NewClient(owner)
	if err != nil {
		return nil, err
	}
	return &InboxProcessor{
		store:  e.Store,
		owner:  owner,
		client: client,
		policy: e.policy(),
		logger: e.Log(),
	}, nil
}

// Process dispatches activity on its type. Unknown types are ignored.
func (p *InboxProcessor) Process(ctx context.Context, activity *ap.Activity) error {
	p.logger.Debug("inbox", "owner", p.owner.Name, "type", activity.Type, "id", activity.ID, "actor", activity.Actor.ID())
	switch activity.Type {
	case ap.Follow:
		return p.processFollow(ctx, activity)
	case ap.Like:
		if activity.Object.IsZero() {
			return fmt.Errorf("%w: Like without object", ap.ErrMalformedActivity)
		}
		return p.store.Like(ctx, activity.Actor.ID(), activity.Object.ID(), activity.ID)
	case ap.Announce:
		if activity.Object.IsZero() {
			return fmt.Errorf("%w: Announce without object", ap.ErrMalformedActivity)
		}
		return p.store.Announce(ctx, activity.Actor.ID(), activity.Object.ID(), activity.ID)
	case ap.Undo:
		return p.processUndo(ctx, activity)
	case ap.Create:
		return p.processCreate(ctx, activity)
	default:
		return nil
	}
}

func (p *InboxProcessor) processFollow(ctx context.Context, follow *ap.Activity) error {
	if target := follow.Object.ID(); target != p.owner.URI {
		return fmt.Errorf("%w: Follow of %q delivered to %q", ap.ErrMalformedActivity, target, p.owner.URI)
	}
	follower := follow.Actor.ID()
	inbox := follow.Actor.Inbox()
	if inbox == "" {
		remote, err := p.store.FindRemoteActor(ctx, follower)
		if err != nil {
			return fmt.Errorf("%w: no inbox for %q: %v", ap.ErrInvalidURL, follower, err)
		}
		inbox = remote.Inbox
	}
	if err := p.policy.Check(inbox); err != nil {
		return err
	}
	if err := p.store.AddFollower(ctx, &models.Follower{
		Username:   p.owner.Name,
		ActorID:    follower,
		Inbox:      inbox,
		Visibility: p.owner.Followers(),
	}); err != nil {
		return err
	}

	accept := &ap.Activity{
		ID:    p.owner.ActivityURI(uuid.New().String()),
		Type:  ap.Accept,
		Actor: ap.RefID(p.owner.URI),
		Object: ap.RefActivity(&ap.Activity{
			ID:     follow.ID,
			Type:   ap.Follow,
			Actor:  ap.RefID(follower),
			Object: ap.RefID(p.owner.URI),
		}),
		To: []string{follower},
	}
	body, err := json.Marshal(accept.Map())
	if err != nil {
		return err
	}
	if err := p.client.Deliver(ctx, inbox, body); err != nil {
		handleDeliveryFailure(ctx, p.store, p.logger, p.owner.Name, accept.ID, inbox, body, err)
	}
	return nil
}

func (p *InboxProcessor) processUndo(ctx context.Context, undo *ap.Activity) error {
	inner, ok := undo.Object.Activity()
	if !ok {
		// only embedded activities can be undone; a bare id names nothing we stored.
		return nil
	}
	actor := undo.Actor.ID()
	switch inner.Type {
	case ap.Like:
		return p.store.Unlike(ctx, actor, inner.Object.ID())
	case ap.Announce:
		return p.store.Unannounce(ctx, actor, inner.Object.ID())
	case ap.Follow:
		if inner.Object.ID() != p.owner.URI {
			return nil
		}
		return p.store.RemoveFollower(ctx, p.owner.Name, actor)
	default:
		return nil
	}
}

// processCreate notifies local actors mentioned by, or replied to in, a
// created Note.
func (p *InboxProcessor) processCreate(ctx context.Context, create *ap.Activity) error {
	obj, ok := create.Object.Object()
	if !ok {
		return nil
	}
	note, err := ap.NoteFromMap(obj)
	if err != nil {
		// not a Note
		return nil
	}
	originator := create.Actor.ID()
	data := map[string]any{"note": note.ID, "content": note.Content}

	for _, acct := range mentions.Parse(note.Content) {
		if acct.Host != "" && acct.Host != p.owner.Domain {
			continue
		}
		mentioned, err := p.store.FindActor(ctx, acct.User)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := p.store.RecordMention(ctx, note.ID, mentioned.URI, originator); err != nil {
			return err
		}
		if err := p.store.Notify(ctx, mentioned.URI, models.MentionNotification, originator, create.ID, data); err != nil {
			return err
		}
	}

	if note.InReplyTo == "" {
		return nil
	}
	parent, err := p.store.FindNote(ctx, note.InReplyTo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return p.store.Notify(ctx, parent.AttributedTo, models.ReplyNotification, originator, create.ID, data)
}

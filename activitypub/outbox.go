package activitypub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	ap "github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/internal/algorithms"
	"github.com/fedinode/fedinode/internal/httpx"
	"github.com/fedinode/fedinode/internal/to"
	"github.com/fedinode/fedinode/models"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DistributionReport summarises one call to Distribute.
type DistributionReport struct {
	// Eligible followers are those whose visibility scope the activity is addressed to.
	Eligible  int
	Delivered int
	Failed    int
	// Skipped followers were not addressed by the activity.
	Skipped int
}

// Distributor fans locally authored activities out to followers.
type Distributor struct {
	env *Env
}

func (e *Env) Distributor() *Distributor {
	return &Distributor{env: e}
}

// Distribute applies the local side effect of activity for the actor called
// username and delivers it to every follower whose visibility scope appears
// in its to or cc. A missing id or actor is filled in. Individual delivery
// failures are recorded in the delivery failure log and do not fail the call.
func (d *Distributor) Distribute(ctx context.Context, username string, activity *ap.Activity) (*DistributionReport, error) {
	owner, err := d.env.Store.FindActor(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := complete(owner, activity); err != nil {
		return nil, err
	}
	if err := d.apply(ctx, owner, activity); err != nil {
		return nil, err
	}
	return d.Deliver(ctx, owner, activity)
}

// complete fills in the id and actor of an activity authored by owner. A
// Follow of owner keeps the follower as its actor.
func complete(owner *models.Actor, activity *ap.Activity) error {
	if activity.Actor.IsZero() {
		activity.Actor = ap.RefID(owner.URI)
	}
	if activity.Actor.ID() != owner.URI && !followOf(owner, activity) {
		return fmt.Errorf("%w: actor %q is not %q", ap.ErrMalformedActivity, activity.Actor.ID(), owner.URI)
	}
	if activity.ID == "" {
		activity.ID = owner.ActivityURI(uuid.New().String())
	}
	return nil
}

func followOf(owner *models.Actor, activity *ap.Activity) bool {
	return activity.Type == ap.Follow && activity.Object.ID() == owner.URI
}

// apply records the side effect of an activity originated by owner, in the
// same tables the inbox processor maintains for remote actors.
func (d *Distributor) apply(ctx context.Context, owner *models.Actor, activity *ap.Activity) error {
	store := d.env.Store
	switch activity.Type {
	case ap.Like:
		if activity.Object.IsZero() {
			return fmt.Errorf("%w: Like without object", ap.ErrMalformedActivity)
		}
		return store.Like(ctx, owner.URI, activity.Object.ID(), activity.ID)
	case ap.Announce:
		if activity.Object.IsZero() {
			return fmt.Errorf("%w: Announce without object", ap.ErrMalformedActivity)
		}
		return store.Announce(ctx, owner.URI, activity.Object.ID(), activity.ID)
	case ap.Undo:
		inner, ok := activity.Object.Activity()
		if !ok {
			return nil
		}
		switch inner.Type {
		case ap.Like:
			return store.Unlike(ctx, owner.URI, inner.Object.ID())
		case ap.Announce:
			return store.Unannounce(ctx, owner.URI, inner.Object.ID())
		}
		return nil
	case ap.Create:
		obj, ok := activity.Object.Object()
		if !ok {
			return nil
		}
		n, err := ap.NoteFromMap(obj)
		if err != nil {
			return nil
		}
		if _, err := store.FindNote(ctx, n.ID); err == nil {
			// already stored by the authoring API
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		note := &models.Note{
			URI:          n.ID,
			Username:     owner.Name,
			AttributedTo: owner.URI,
			Content:      n.Content,
			InReplyTo:    n.InReplyTo,
			Visibility:   visibilityOf(owner, activity),
			To:           n.To,
			CC:           n.CC,
			Published:    n.Published,
		}
		if err := store.CreateNote(ctx, note); err != nil {
			return err
		}
		return recordMentions(ctx, store, owner, note)
	case ap.Follow:
		if !followOf(owner, activity) {
			// outbound follows are not tracked.
			return nil
		}
		return d.reaccept(ctx, owner, activity)
	case ap.Accept:
		inner, ok := activity.Object.Activity()
		if !ok || !followOf(owner, inner) {
			return nil
		}
		return d.reaccept(ctx, owner, inner)
	default:
		// Update and Delete have no local state beyond the notes maintained
		// by the authoring API.
		return nil
	}
}

// reaccept records the follower named by a re-announced Follow of owner.
func (d *Distributor) reaccept(ctx context.Context, owner *models.Actor, follow *ap.Activity) error {
	follower := follow.Actor.ID()
	if follower == "" || follower == owner.URI {
		return fmt.Errorf("%w: Follow of %q by %q", ap.ErrMalformedActivity, owner.URI, follower)
	}
	inbox := follow.Actor.Inbox()
	if inbox == "" {
		remote, err := d.env.Store.FindRemoteActor(ctx, follower)
		if err != nil {
			return fmt.Errorf("%w: no inbox for %q: %v", ap.ErrInvalidURL, follower, err)
		}
		inbox = remote.Inbox
	}
	if err := d.env.policy().Check(inbox); err != nil {
		return err
	}
	return d.env.Store.AddFollower(ctx, &models.Follower{
		Username:   owner.Name,
		ActorID:    follower,
		Inbox:      inbox,
		Visibility: owner.Followers(),
	})
}

// Deliver sends activity, authored by owner, to each eligible follower
// concurrently and waits for every delivery to finish.
func (d *Distributor) Deliver(ctx context.Context, owner *models.Actor, activity *ap.Activity) (*DistributionReport, error) {
	followers, err := d.env.Store.Followers(ctx, owner.Name)
	if err != nil {
		return nil, err
	}
	eligible := algorithms.Filter(followers, func(f models.Follower) bool {
		return activity.Addressed(f.Visibility)
	})
	report := &DistributionReport{
		Eligible: len(eligible),
		Skipped:  len(followers) - len(eligible),
	}
	if len(eligible) == 0 {
		return report, nil
	}

	body, err := json.Marshal(activity.Map())
	if err != nil {
		return nil, err
	}
	client, err := d.env.NewClient(owner)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, f := range eligible {
		wg.Add(1)
		go func(f models.Follower) {
			defer wg.Done()
			err := client.Deliver(ctx, f.Inbox, body)
			if err != nil {
				handleDeliveryFailure(ctx, d.env.Store, d.env.Log(), owner.Name, activity.ID, f.Inbox, body, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
			} else {
				report.Delivered++
			}
		}(f)
	}
	wg.Wait()

	d.env.Log().Info("distributed", "username", owner.Name, "activity", activity.ID, "type", activity.Type,
		"eligible", report.Eligible, "delivered", report.Delivered, "failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

// NotifyCreate handles POST /users/{username}/notify, distributing the
// activity in the request body on behalf of the authenticated actor.
func NotifyCreate(env *Env, owner *models.Actor, w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	activity, err := ap.Parse(doc)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	if _, err := env.Distributor().Distribute(r.Context(), owner.Name, activity); err != nil {
		if errors.Is(err, ap.ErrMalformedActivity) || errors.Is(err, ap.ErrInvalidURL) {
			return httpx.Error(http.StatusBadRequest, err)
		}
		return err
	}
	return to.JSON(w, map[string]any{"status": "ok"})
}

// OutboxIndex handles GET /users/{username}/outbox.
func OutboxIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	owner, err := findOwner(env, r)
	if err != nil {
		return err
	}
	notes := models.NewNotes(env.DB.WithContext(r.Context()))
	count, err := notes.Count(owner.Name)
	if err != nil {
		return err
	}
	page, err := notes.Outbox(owner.Name, outboxPageSize)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, map[string]any{
		"@context":     ap.Context,
		"id":           owner.Outbox(),
		"type":         "OrderedCollection",
		"totalItems":   count,
		"orderedItems": algorithms.Map(page, noteToCreate),
	})
}

const outboxPageSize = 20

func noteToCreate(n models.Note) map[string]any {
	create := &ap.Activity{
		ID:        n.URI + "/activity",
		Type:      ap.Create,
		Actor:     ap.RefID(n.AttributedTo),
		Object:    ap.RefObject(n.AsNote().Map()),
		To:        n.To,
		CC:        n.CC,
		Published: n.Published,
	}
	m := create.Map()
	delete(m, "@context")
	return m
}

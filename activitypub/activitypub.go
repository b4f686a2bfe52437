// Package activitypub implements the inbox, outbox and read side of the
// node's ActivityPub surface.
package activitypub

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"

	ap "github.com/fedinode/fedinode/internal/activitypub"
	ic "github.com/fedinode/fedinode/internal/crypto"
	"github.com/fedinode/fedinode/models"
	"gorm.io/gorm"
)

// Store is the persistence the inbox processor and distributor depend on.
type Store interface {
	FindActor(ctx context.Context, username string) (*models.Actor, error)
	FindRemoteActor(ctx context.Context, uri string) (*models.RemoteActor, error)
	SaveRemoteActor(ctx context.Context, actor *models.RemoteActor) error

	Followers(ctx context.Context, username string) ([]models.Follower, error)
	AddFollower(ctx context.Context, follower *models.Follower) error
	RemoveFollower(ctx context.Context, username, actorID string) error

	Like(ctx context.Context, actorID, objectID, activityID string) error
	Unlike(ctx context.Context, actorID, objectID string) error
	Announce(ctx context.Context, actorID, objectID, activityID string) error
	Unannounce(ctx context.Context, actorID, objectID string) error

	CreateNote(ctx context.Context, note *models.Note) error
	SaveNote(ctx context.Context, note *models.Note) error
	FindNote(ctx context.Context, uri string) (*models.Note, error)
	DeleteNote(ctx context.Context, uri string) error

	Notify(ctx context.Context, actorID string, typ models.NotificationType, originatingActorID, referenceID string, data map[string]any) error
	RecordMention(ctx context.Context, noteID, mentionedActorID, mentionerID string) error

	LogDeliveryFailure(ctx context.Context, failure *models.DeliveryFailure) error
}

var _ Store = (*models.Store)(nil)

// Env is the environment the ActivityPub handlers run in.
type Env struct {
	*models.Env
	Store Store
	// Policy validates remote inbox URLs. The default policy is used when nil.
	Policy *ap.Policy
	// ClientOptions are applied to every outbound client, eg. the
	// delivery timeout.
	ClientOptions []ap.Option
}

func (e *Env) policy() *ap.Policy {
	if e.Policy == nil {
		return ap.DefaultPolicy()
	}
	return e.Policy
}

// NewClient returns a client signing as signAs.
func (e *Env) NewClient(signAs *models.Actor) (*ap.Client, error) {
	opts := append([]ap.Option{ap.WithPolicy(e.policy())}, e.ClientOptions...)
	if signAs == nil {
		// an unsigned client, not a nil *models.Actor wrapped in a Signer.
		return ap.NewClient(nil, opts...)
	}
	return ap.NewClient(signAs, opts...)
}

// KeyFunc returns a function resolving the keyId of an inbound request
// addressed to signAs. Keys come from the remote actor cache; on a miss the
// owning actor document is fetched, signed as signAs when it is not nil,
// and cached.
func (e *Env) KeyFunc(signAs *models.Actor) func(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	return func(ctx context.Context, keyID string) (crypto.PublicKey, error) {
		uri := trimKeyID(keyID)
		actor, err := e.Store.FindRemoteActor(ctx, uri)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			actor, err = e.FetchRemoteActor(ctx, signAs, uri)
		}
		if err != nil {
			return nil, err
		}
		return ic.ParseRSAPublicKey(actor.PublicKey)
	}
}

// FetchRemoteActor fetches the actor document at uri, signed as signAs when
// it is not nil, and caches it.
func (e *Env) FetchRemoteActor(ctx context.Context, signAs *models.Actor, uri string) (*models.RemoteActor, error) {
	client, err := e.NewClient(signAs)
	if err != nil {
		return nil, err
	}
	var doc ap.Actor
	if err := client.Fetch(ctx, uri, &doc); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", uri, err)
	}
	if doc.ID != uri {
		return nil, fmt.Errorf("fetch %s: document id %q does not match", uri, doc.ID)
	}
	if doc.PublicKey.PublicKeyPem == "" {
		return nil, fmt.Errorf("fetch %s: no public key", uri)
	}
	actor := &models.RemoteActor{
		URI:         doc.ID,
		Name:        doc.PreferredUsername,
		Domain:      hostOf(doc.ID),
		Inbox:       doc.Inbox,
		SharedInbox: doc.Endpoints.SharedInbox,
		PublicKeyID: doc.PublicKey.ID,
		PublicKey:   []byte(doc.PublicKey.PublicKeyPem),
	}
	if err := e.Store.SaveRemoteActor(ctx, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// trimKeyID removes the #main-key suffix from the key id.
func trimKeyID(id string) string {
	if i := strings.Index(id, "#"); i != -1 {
		return id[:i]
	}
	return id
}

func hostOf(uri string) string {
	rest, ok := strings.CutPrefix(uri, "https://")
	if !ok {
		return ""
	}
	host, _, _ := strings.Cut(rest, "/")
	return host
}

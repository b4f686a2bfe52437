package models

import (
	"context"

	"gorm.io/gorm"
)

// Store is the gorm backed actor and follower store used by the inbox
// processor and outbox distributor. Each call runs in its own short
// statement bound to ctx; no transaction spans a network call.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) tx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) FindActor(ctx context.Context, username string) (*Actor, error) {
	return NewActors(s.tx(ctx)).FindByName(username)
}

func (s *Store) FindActorByURI(ctx context.Context, uri string) (*Actor, error) {
	return NewActors(s.tx(ctx)).FindByURI(uri)
}

func (s *Store) FindRemoteActor(ctx context.Context, uri string) (*RemoteActor, error) {
	return NewRemoteActors(s.tx(ctx)).FindByURI(uri)
}

func (s *Store) SaveRemoteActor(ctx context.Context, actor *RemoteActor) error {
	return NewRemoteActors(s.tx(ctx)).Save(actor)
}

// Followers returns the followers of username with their visibility scopes.
func (s *Store) Followers(ctx context.Context, username string) ([]Follower, error) {
	return NewFollowers(s.tx(ctx)).ForUsername(username)
}

func (s *Store) AddFollower(ctx context.Context, follower *Follower) error {
	return NewFollowers(s.tx(ctx)).Add(follower)
}

func (s *Store) RemoveFollower(ctx context.Context, username, actorID string) error {
	return NewFollowers(s.tx(ctx)).Remove(username, actorID)
}

func (s *Store) Like(ctx context.Context, actorID, objectID, activityID string) error {
	return NewReactions(s.tx(ctx)).Like(actorID, objectID, activityID)
}

func (s *Store) Unlike(ctx context.Context, actorID, objectID string) error {
	return NewReactions(s.tx(ctx)).Unlike(actorID, objectID)
}

func (s *Store) Announce(ctx context.Context, actorID, objectID, activityID string) error {
	return NewReactions(s.tx(ctx)).Announce(actorID, objectID, activityID)
}

func (s *Store) Unannounce(ctx context.Context, actorID, objectID string) error {
	return NewReactions(s.tx(ctx)).Unannounce(actorID, objectID)
}

func (s *Store) CreateNote(ctx context.Context, note *Note) error {
	return NewNotes(s.tx(ctx)).Create(note)
}

func (s *Store) SaveNote(ctx context.Context, note *Note) error {
	return NewNotes(s.tx(ctx)).Save(note)
}

func (s *Store) FindNote(ctx context.Context, uri string) (*Note, error) {
	return NewNotes(s.tx(ctx)).FindByURI(uri)
}

func (s *Store) DeleteNote(ctx context.Context, uri string) error {
	return NewNotes(s.tx(ctx)).Delete(uri)
}

func (s *Store) Notify(ctx context.Context, actorID string, typ NotificationType, originatingActorID, referenceID string, data map[string]any) error {
	_, err := NewNotifications(s.tx(ctx)).Create(actorID, typ, originatingActorID, referenceID, data)
	return err
}

func (s *Store) RecordMention(ctx context.Context, noteID, mentionedActorID, mentionerID string) error {
	return NewNotifications(s.tx(ctx)).RecordMention(noteID, mentionedActorID, mentionerID)
}

// LogDeliveryFailure appends failure to the delivery failure log.
func (s *Store) LogDeliveryFailure(ctx context.Context, failure *DeliveryFailure) error {
	return NewDeliveryFailures(s.tx(ctx)).Log(failure)
}

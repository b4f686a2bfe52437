package models

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/fedinode/fedinode/internal/crypto"
	"github.com/fedinode/fedinode/internal/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// An Actor is a local actor hosted by this node.
type Actor struct {
	snowflake.ID      `gorm:"primarykey;autoIncrement:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	URI               string `gorm:"size:255;uniqueIndex;not null"`
	Name              string `gorm:"size:64;uniqueIndex;not null"`
	Domain            string `gorm:"size:64;not null"`
	DisplayName       string `gorm:"size:64;not null;default:''"`
	Summary           string `gorm:"type:text"`
	PublicKey         []byte `gorm:"not null"`
	PrivateKey        []byte `gorm:"not null"`
	EncryptedPassword []byte `gorm:"size:60"`
}

// ActorURI returns the URI of the actor called name on domain.
func ActorURI(domain, name string) string {
	return "https://" + domain + "/users/" + name
}

func (a *Actor) Inbox() string     { return a.URI + "/inbox" }
func (a *Actor) Outbox() string    { return a.URI + "/outbox" }
func (a *Actor) Followers() string { return a.URI + "/followers" }
func (a *Actor) Following() string { return a.URI + "/following" }

// NoteURI returns the URI of the actor's note with the given id.
func (a *Actor) NoteURI(id snowflake.ID) string {
	return a.URI + "/notes/" + id.String()
}

// ActivityURI returns the URI of an activity originated by the actor.
func (a *Actor) ActivityURI(id string) string {
	return a.URI + "/activities/" + id
}

// PublicKeyID returns the keyId the actor signs requests with.
func (a *Actor) PublicKeyID() string {
	return a.URI + "#main-key"
}

// PrivKey returns the actor's parsed private key.
func (a *Actor) PrivKey() (*rsa.PrivateKey, error) {
	_, priv, err := crypto.ParseRSAPrivateKey(a.PrivateKey)
	return priv, err
}

// CheckPassword reports whether password matches the actor's password.
// Actors without a password never match.
func (a *Actor) CheckPassword(password string) bool {
	if len(a.EncryptedPassword) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.EncryptedPassword, []byte(password)) == nil
}

type Actors struct {
	db *gorm.DB
}

func NewActors(db *gorm.DB) *Actors {
	return &Actors{db: db}
}

// Create creates a local actor called name on domain with a fresh keypair.
// An empty password disables the local authoring API for the actor.
func (a *Actors) Create(name, domain, password string) (*Actor, error) {
	keypair, err := crypto.GenerateRSAKeypair()
	if err != nil {
		return nil, err
	}
	var passwd []byte
	if password != "" {
		if passwd, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err != nil {
			return nil, err
		}
	}
	actor := &Actor{
		ID:                snowflake.Now(),
		URI:               ActorURI(domain, name),
		Name:              name,
		Domain:            domain,
		DisplayName:       name,
		PublicKey:         keypair.PublicKey,
		PrivateKey:        keypair.PrivateKey,
		EncryptedPassword: passwd,
	}
	if err := a.db.Create(actor).Error; err != nil {
		return nil, fmt.Errorf("create actor %q: %w", name, err)
	}
	return actor, nil
}

// FindByName returns the local actor with the given preferredUsername.
func (a *Actors) FindByName(name string) (*Actor, error) {
	var actor Actor
	if err := a.db.Take(&actor, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

// FindByURI returns the local actor with the given id.
func (a *Actors) FindByURI(uri string) (*Actor, error) {
	var actor Actor
	if err := a.db.Take(&actor, "uri = ?", uri).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

// A RemoteActor caches the parts of a remote actor document needed to
// verify its signatures and deliver to its inbox.
type RemoteActor struct {
	URI         string `gorm:"primarykey;size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:64;not null;default:''"`
	Domain      string `gorm:"size:64;not null;default:''"`
	Inbox       string `gorm:"size:255;not null"`
	SharedInbox string `gorm:"size:255;not null;default:''"`
	PublicKeyID string `gorm:"size:255;index"`
	PublicKey   []byte `gorm:"not null"`
}

type RemoteActors struct {
	db *gorm.DB
}

func NewRemoteActors(db *gorm.DB) *RemoteActors {
	return &RemoteActors{db: db}
}

// FindByURI returns the cached remote actor with the given id.
func (r *RemoteActors) FindByURI(uri string) (*RemoteActor, error) {
	var actor RemoteActor
	if err := r.db.Take(&actor, "uri = ?", uri).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

// Save inserts or refreshes the cached copy of a remote actor.
func (r *RemoteActors) Save(actor *RemoteActor) error {
	if actor.URI == "" {
		return errors.New("remote actor without uri")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uri"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at", "name", "domain", "inbox", "shared_inbox", "public_key_id", "public_key"}),
	}).Create(actor).Error
}

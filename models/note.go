package models

import (
	"fmt"
	"time"

	"github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// A Note is a note authored by a local actor.
type Note struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	URI          string `gorm:"size:255;uniqueIndex;not null"`
	// Username is the local actor the note belongs to.
	Username     string     `gorm:"size:64;index;not null"`
	AttributedTo string     `gorm:"size:255;not null"`
	Content      string     `gorm:"type:text"`
	InReplyTo    string     `gorm:"size:255;not null;default:''"`
	Visibility   Visibility `gorm:"not null;default:'public'"`
	To           []string   `gorm:"column:addressed_to;serializer:json"`
	CC           []string   `gorm:"column:addressed_cc;serializer:json"`
	Published    time.Time
}

type Visibility string

const (
	Public        Visibility = "public"
	Unlisted      Visibility = "unlisted"
	FollowersOnly Visibility = "followers"
	Direct        Visibility = "direct"
)

func (Visibility) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('public', 'unlisted', 'followers', 'direct')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// ParseVisibility parses s, defaulting to Public when s is empty.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case "":
		return Public, nil
	case Public, Unlisted, FollowersOnly, Direct:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

func (n *Note) BeforeSave(tx *gorm.DB) error {
	return forEach(tx, n.validateVisibility, n.setPublished)
}

func (n *Note) validateVisibility(*gorm.DB) error {
	v, err := ParseVisibility(string(n.Visibility))
	if err != nil {
		return err
	}
	n.Visibility = v
	return nil
}

func (n *Note) setPublished(*gorm.DB) error {
	if n.Published.IsZero() {
		n.Published = n.ID.ToTime()
	}
	return nil
}

// AsNote returns the ActivityStreams representation of the note.
func (n *Note) AsNote() *activitypub.Note {
	return &activitypub.Note{
		ID:           n.URI,
		AttributedTo: n.AttributedTo,
		Content:      n.Content,
		InReplyTo:    n.InReplyTo,
		Published:    n.Published,
		To:           n.To,
		CC:           n.CC,
	}
}

type Notes struct {
	db *gorm.DB
}

func NewNotes(db *gorm.DB) *Notes {
	return &Notes{db: db}
}

// Create inserts note, assigning an id if it has none.
func (n *Notes) Create(note *Note) error {
	if note.ID == 0 {
		note.ID = snowflake.Now()
	}
	return n.db.Create(note).Error
}

// Save updates the mutable fields of an existing note.
func (n *Notes) Save(note *Note) error {
	return n.db.Model(note).Select("content", "in_reply_to", "visibility", "addressed_to", "addressed_cc", "updated_at").Updates(note).Error
}

// FindByURI returns the note with the given id.
func (n *Notes) FindByURI(uri string) (*Note, error) {
	var note Note
	if err := n.db.Take(&note, "uri = ?", uri).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// FindByID returns username's note with the given row id.
func (n *Notes) FindByID(username string, id snowflake.ID) (*Note, error) {
	var note Note
	if err := n.db.Take(&note, "username = ? AND id = ?", username, id).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// Delete removes the note with the given id, if present.
func (n *Notes) Delete(uri string) error {
	return n.db.Where("uri = ?", uri).Delete(&Note{}).Error
}

// Outbox returns username's public and unlisted notes, newest first.
func (n *Notes) Outbox(username string, limit int) ([]Note, error) {
	var notes []Note
	err := n.db.Where("username = ? AND visibility IN ?", username, []Visibility{Public, Unlisted}).
		Order("id desc").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}

// Count returns the number of notes in username's outbox.
func (n *Notes) Count(username string) (int64, error) {
	var count int64
	err := n.db.Model(&Note{}).Where("username = ? AND visibility IN ?", username, []Visibility{Public, Unlisted}).Count(&count).Error
	return count, err
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// A Notification tells a local actor that a remote or local actor mentioned
// or replied to them.
type Notification struct {
	ID        string `gorm:"primarykey;size:36"`
	CreatedAt time.Time
	// ActorID is the URI of the local actor being notified.
	ActorID            string           `gorm:"size:255;index;not null"`
	Type               NotificationType `gorm:"not null"`
	OriginatingActorID string           `gorm:"size:255;not null"`
	// ReferenceID is the id of the activity that caused the notification.
	ReferenceID string         `gorm:"size:255;not null"`
	Seen        bool           `gorm:"not null;default:false"`
	Data        map[string]any `gorm:"serializer:json"`
}

type NotificationType string

const (
	MentionNotification NotificationType = "mention"
	ReplyNotification   NotificationType = "reply"
)

func (NotificationType) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('mention', 'reply')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// A Mention records that a note mentions an actor.
type Mention struct {
	ID        string `gorm:"primarykey;size:36"`
	CreatedAt time.Time
	// NoteID is the URI of the mentioning note.
	NoteID           string `gorm:"size:255;index;not null"`
	MentionedActorID string `gorm:"size:255;not null"`
	MentionerID      string `gorm:"size:255;not null"`
}

type Notifications struct {
	db *gorm.DB
}

func NewNotifications(db *gorm.DB) *Notifications {
	return &Notifications{db: db}
}

// Create records a notification for actorID.
func (n *Notifications) Create(actorID string, typ NotificationType, originatingActorID, referenceID string, data map[string]any) (*Notification, error) {
	notification := &Notification{
		ID:                 uuid.New().String(),
		ActorID:            actorID,
		Type:               typ,
		OriginatingActorID: originatingActorID,
		ReferenceID:        referenceID,
		Data:               data,
	}
	if err := n.db.Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

// ForActor returns actorID's notifications, newest first.
func (n *Notifications) ForActor(actorID string, limit, offset int) ([]Notification, error) {
	var notifications []Notification
	err := n.db.Where("actor_id = ?", actorID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

// MarkSeen marks the given notifications belonging to actorID as seen.
func (n *Notifications) MarkSeen(actorID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return n.db.Model(&Notification{}).Where("actor_id = ? AND id IN ?", actorID, ids).Update("seen", true).Error
}

// RecordMention records that the note noteID by mentionerID mentions mentionedActorID.
func (n *Notifications) RecordMention(noteID, mentionedActorID, mentionerID string) error {
	return n.db.Create(&Mention{
		ID:               uuid.New().String(),
		NoteID:           noteID,
		MentionedActorID: mentionedActorID,
		MentionerID:      mentionerID,
	}).Error
}

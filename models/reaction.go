package models

import (
	"time"

	"github.com/fedinode/fedinode/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// A Like records an actor liking an object.
type Like struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	ActorID      string `gorm:"size:255;uniqueIndex:uidx_likes_actor_id_object_id;not null"`
	ObjectID     string `gorm:"size:255;uniqueIndex:uidx_likes_actor_id_object_id;index;not null"`
	ActivityID   string `gorm:"size:255;not null;default:''"`
}

// An Announce records an actor boosting an object.
type Announce struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	ActorID      string `gorm:"size:255;uniqueIndex:uidx_announces_actor_id_object_id;not null"`
	ObjectID     string `gorm:"size:255;uniqueIndex:uidx_announces_actor_id_object_id;index;not null"`
	ActivityID   string `gorm:"size:255;not null;default:''"`
}

// Reactions manages likes and announces. Both are keyed by (actor, object);
// adding an existing pair and removing an absent one are no-ops.
type Reactions struct {
	db *gorm.DB
}

func NewReactions(db *gorm.DB) *Reactions {
	return &Reactions{db: db}
}

var actorObject = []clause.Column{{Name: "actor_id"}, {Name: "object_id"}}

// Like records actorID liking objectID via activityID.
func (r *Reactions) Like(actorID, objectID, activityID string) error {
	return r.db.Clauses(clause.OnConflict{Columns: actorObject, DoNothing: true}).Create(&Like{
		ID:         snowflake.Now(),
		ActorID:    actorID,
		ObjectID:   objectID,
		ActivityID: activityID,
	}).Error
}

// Unlike removes the like of objectID by actorID.
func (r *Reactions) Unlike(actorID, objectID string) error {
	return r.db.Where("actor_id = ? AND object_id = ?", actorID, objectID).Delete(&Like{}).Error
}

// Announce records actorID announcing objectID via activityID.
func (r *Reactions) Announce(actorID, objectID, activityID string) error {
	return r.db.Clauses(clause.OnConflict{Columns: actorObject, DoNothing: true}).Create(&Announce{
		ID:         snowflake.Now(),
		ActorID:    actorID,
		ObjectID:   objectID,
		ActivityID: activityID,
	}).Error
}

// Unannounce removes the announce of objectID by actorID.
func (r *Reactions) Unannounce(actorID, objectID string) error {
	return r.db.Where("actor_id = ? AND object_id = ?", actorID, objectID).Delete(&Announce{}).Error
}

// Counts returns the number of likes and announces of objectID.
func (r *Reactions) Counts(objectID string) (likes, announces int64, err error) {
	if err := r.db.Model(&Like{}).Where("object_id = ?", objectID).Count(&likes).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.Model(&Announce{}).Where("object_id = ?", objectID).Count(&announces).Error; err != nil {
		return 0, 0, err
	}
	return likes, announces, nil
}

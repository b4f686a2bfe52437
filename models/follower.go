package models

import (
	"time"

	"github.com/fedinode/fedinode/internal/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// A Follower records a remote actor whose Follow of a local actor was accepted.
// Visibility is the addressing URI, either the Public sentinel or the owner's
// followers collection, an activity must carry in to or cc to be delivered
// to this follower.
type Follower struct {
	snowflake.ID `gorm:"primarykey;autoIncrement:false"`
	CreatedAt    time.Time
	// Username is the local actor being followed.
	Username string `gorm:"size:64;uniqueIndex:uidx_followers_username_actor_id;not null"`
	// ActorID is the URI of the following actor.
	ActorID    string `gorm:"size:255;uniqueIndex:uidx_followers_username_actor_id;not null"`
	Inbox      string `gorm:"size:255;not null"`
	Visibility string `gorm:"size:255;not null"`
}

type Followers struct {
	db *gorm.DB
}

func NewFollowers(db *gorm.DB) *Followers {
	return &Followers{db: db}
}

// Add records follower if the (username, actor) pair is not already present.
// Repeated or concurrent Follows of the same actor are not an error.
func (f *Followers) Add(follower *Follower) error {
	if follower.ID == 0 {
		follower.ID = snowflake.Now()
	}
	return f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}, {Name: "actor_id"}},
		DoNothing: true,
	}).Create(follower).Error
}

// Remove deletes the follower row for (username, actorID), if present.
func (f *Followers) Remove(username, actorID string) error {
	return f.db.Where("username = ? AND actor_id = ?", username, actorID).Delete(&Follower{}).Error
}

// SetVisibility changes the visibility scope of an existing follower.
func (f *Followers) SetVisibility(username, actorID, visibility string) error {
	res := f.db.Model(&Follower{}).Where("username = ? AND actor_id = ?", username, actorID).Update("visibility", visibility)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ForUsername returns every follower of the local actor called username.
func (f *Followers) ForUsername(username string) ([]Follower, error) {
	var followers []Follower
	err := f.db.Where("username = ?", username).Order("id").Find(&followers).Error
	return followers, err
}

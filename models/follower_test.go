package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFollowers(t *testing.T) {
	db := setupTestDB(t)

	t.Run("Add is idempotent", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := MockActor(t, tx, "alice", "example.com")
		followers := NewFollowers(tx)
		for i := 0; i < 3; i++ {
			err := followers.Add(&Follower{
				Username:   alice.Name,
				ActorID:    "https://remote.example/users/bob",
				Inbox:      "https://remote.example/users/bob/inbox",
				Visibility: alice.Followers(),
			})
			require.NoError(err)
		}

		got, err := followers.ForUsername(alice.Name)
		require.NoError(err)
		require.Len(got, 1)
		require.Equal(alice.Followers(), got[0].Visibility)
	})

	t.Run("Remove is idempotent", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		followers := NewFollowers(tx)
		require.NoError(followers.Add(&Follower{
			Username:   "alice",
			ActorID:    "https://remote.example/users/bob",
			Inbox:      "https://remote.example/users/bob/inbox",
			Visibility: "https://example.com/users/alice/followers",
		}))
		require.NoError(followers.Remove("alice", "https://remote.example/users/bob"))
		require.NoError(followers.Remove("alice", "https://remote.example/users/bob"))

		got, err := followers.ForUsername("alice")
		require.NoError(err)
		require.Empty(got)
	})

	t.Run("SetVisibility", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		followers := NewFollowers(tx)
		require.NoError(followers.Add(&Follower{
			Username:   "alice",
			ActorID:    "https://remote.example/users/carol",
			Inbox:      "https://remote.example/users/carol/inbox",
			Visibility: "https://example.com/users/alice/followers",
		}))

		err := followers.SetVisibility("alice", "https://remote.example/users/carol", "https://www.w3.org/ns/activitystreams#Public")
		require.NoError(err)

		got, err := followers.ForUsername("alice")
		require.NoError(err)
		require.Len(got, 1)
		require.Equal("https://www.w3.org/ns/activitystreams#Public", got[0].Visibility)

		err = followers.SetVisibility("alice", "https://remote.example/users/nobody", "x")
		require.ErrorIs(err, gorm.ErrRecordNotFound)
	})
}

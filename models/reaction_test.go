package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReactions(t *testing.T) {
	db := setupTestDB(t)

	const (
		bob  = "https://remote.example/users/bob"
		note = "https://example.com/users/alice/notes/1"
	)

	t.Run("Like and Unlike", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		reactions := NewReactions(tx)
		require.NoError(reactions.Like(bob, note, "https://remote.example/likes/1"))
		require.NoError(reactions.Like(bob, note, "https://remote.example/likes/2"))

		likes, announces, err := reactions.Counts(note)
		require.NoError(err)
		require.EqualValues(1, likes)
		require.EqualValues(0, announces)

		require.NoError(reactions.Unlike(bob, note))
		require.NoError(reactions.Unlike(bob, note))

		likes, _, err = reactions.Counts(note)
		require.NoError(err)
		require.EqualValues(0, likes)
	})

	t.Run("Announce and Unannounce", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		reactions := NewReactions(tx)
		require.NoError(reactions.Announce(bob, note, "https://remote.example/announces/1"))
		require.NoError(reactions.Announce(bob, note, "https://remote.example/announces/1"))

		_, announces, err := reactions.Counts(note)
		require.NoError(err)
		require.EqualValues(1, announces)

		require.NoError(reactions.Unannounce(bob, note))
		_, announces, err = reactions.Counts(note)
		require.NoError(err)
		require.EqualValues(0, announces)
	})

	t.Run("Unlike without a like", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		require.NoError(NewReactions(tx).Unlike(bob, "https://example.com/never-liked"))
	})
}

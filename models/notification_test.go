package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifications(t *testing.T) {
	require := require.New(t)
	db := setupTestDB(t)
	tx := db.Begin()
	defer tx.Rollback()

	notifications := NewNotifications(tx)
	const alice = "https://example.com/users/alice"
	first, err := notifications.Create(alice, MentionNotification, "https://remote.example/users/bob", "https://remote.example/activities/1", map[string]any{"content": "hi @alice"})
	require.NoError(err)
	require.Len(first.ID, 36)
	_, err = notifications.Create(alice, ReplyNotification, "https://remote.example/users/bob", "https://remote.example/activities/2", nil)
	require.NoError(err)
	_, err = notifications.Create("https://example.com/users/carol", MentionNotification, "https://remote.example/users/bob", "https://remote.example/activities/3", nil)
	require.NoError(err)

	got, err := notifications.ForActor(alice, 10, 0)
	require.NoError(err)
	require.Len(got, 2)

	got, err = notifications.ForActor(alice, 1, 1)
	require.NoError(err)
	require.Len(got, 1)

	require.NoError(notifications.MarkSeen(alice, []string{first.ID}))
	require.NoError(notifications.MarkSeen(alice, nil))

	var seen Notification
	require.NoError(tx.Take(&seen, "id = ?", first.ID).Error)
	require.True(seen.Seen)
	require.Equal("hi @alice", seen.Data["content"])

	require.NoError(notifications.RecordMention("https://remote.example/notes/1", alice, "https://remote.example/users/bob"))
	var mentions int64
	require.NoError(tx.Model(&Mention{}).Count(&mentions).Error)
	require.EqualValues(1, mentions)
}

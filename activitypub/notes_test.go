package activitypub

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ap "github.com/fedinode/fedinode/internal/activitypub"
	"github.com/fedinode/fedinode/models"
	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func jsonRequest(t *testing.T, method, url string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("alice", password)
	return req
}

func notesURL(username string) string {
	return "https://" + localDomain + "/users/" + username + "/notes"
}

// postNote creates a note as alice and returns the Create activity.
func (e *testEnv) postNote(t *testing.T, params map[string]any) map[string]any {
	t.Helper()
	w := e.do(jsonRequest(t, "POST", notesURL("alice"), params))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, ap.ContentType, w.Header().Get("Content-Type"))
	return decodeBody(t, w.Body.Bytes())
}

func TestNotesCreate(t *testing.T) {
	t.Run("public", func(t *testing.T) {
		require := require.New(t)
		env := newTestEnv(t)
		alice := env.createActor(t, "alice")
		env.addFollower(t, alice, bobURI)

		create := env.postNote(t, map[string]any{"content": "hello world"})
		require.Equal("Create", create["type"])
		require.Equal(alice.URI, create["actor"])
		require.Equal([]any{ap.Public}, create["to"])
		require.Equal([]any{alice.Followers()}, create["cc"])

		note := create["object"].(map[string]any)
		require.True(strings.HasPrefix(note["id"].(string), alice.URI+"/notes/"))
		require.Equal("hello world", note["content"])

		reqs := env.transport.RequestsTo(bobURI + "/inbox")
		require.Len(reqs, 1)
		require.Equal(create["id"], decodeBody(t, reqs[0].Body)["id"])

		w := env.do(httptest.NewRequest("GET", note["id"].(string), nil))
		require.Equal(http.StatusOK, w.Code, w.Body.String())
		require.Equal("hello world", decodeBody(t, w.Body.Bytes())["content"])
	})

	t.Run("direct", func(t *testing.T) {
		require := require.New(t)
		env := newTestEnv(t)
		alice := env.createActor(t, "alice")
		frank := env.createActor(t, "frank")
		env.addFollower(t, alice, bobURI)

		create := env.postNote(t, map[string]any{"content": "psst @frank", "visibility": "direct"})
		require.Equal([]any{frank.URI}, create["to"])
		require.Nil(create["cc"])
		require.Empty(env.transport.Requests())

		notifications, err := models.NewNotifications(env.DB).ForActor(frank.URI, 10, 0)
		require.NoError(err)
		require.Len(notifications, 1)
		require.Equal(alice.URI, notifications[0].OriginatingActorID)

		// direct notes are not served to anonymous readers.
		note := create["object"].(map[string]any)
		w := env.do(httptest.NewRequest("GET", note["id"].(string), nil))
		require.Equal(http.StatusNotFound, w.Code)
	})

	t.Run("unlisted", func(t *testing.T) {
		require := require.New(t)
		env := newTestEnv(t)
		alice := env.createActor(t, "alice")

		create := env.postNote(t, map[string]any{"content": "quiet", "visibility": "unlisted"})
		require.Equal([]any{alice.Followers()}, create["to"])
		require.Equal([]any{ap.Public}, create["cc"])
	})

	t.Run("self mention is not notified", func(t *testing.T) {
		require := require.New(t)
		env := newTestEnv(t)
		alice := env.createActor(t, "alice")

		env.postNote(t, map[string]any{"content": "note to @alice"})
		notifications, err := models.NewNotifications(env.DB).ForActor(alice.URI, 10, 0)
		require.NoError(err)
		require.Empty(notifications)
	})

	t.Run("missing content", func(t *testing.T) {
		env := newTestEnv(t)
		env.createActor(t, "alice")
		w := env.do(jsonRequest(t, "POST", notesURL("alice"), map[string]any{}))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad visibility", func(t *testing.T) {
		env := newTestEnv(t)
		env.createActor(t, "alice")
		w := env.do(jsonRequest(t, "POST", notesURL("alice"), map[string]any{"content": "x", "visibility": "secret"}))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		env := newTestEnv(t)
		env.createActor(t, "alice")
		req := jsonRequest(t, "POST", notesURL("alice"), map[string]any{"content": "x"})
		req.Header.Del("Authorization")
		w := env.do(req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestNotesUpdateAndDestroy(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	alice := env.createActor(t, "alice")
	env.addFollower(t, alice, bobURI)

	create := env.postNote(t, map[string]any{"content": "first draft"})
	noteURI := create["object"].(map[string]any)["id"].(string)

	w := env.do(jsonRequest(t, "PUT", noteURI, map[string]any{"content": "second draft"}))
	require.Equal(http.StatusOK, w.Code, w.Body.String())
	update := decodeBody(t, w.Body.Bytes())
	require.Equal("Update", update["type"])
	require.Equal("second draft", update["object"].(map[string]any)["content"])

	note, err := models.NewNotes(env.DB).FindByURI(noteURI)
	require.NoError(err)
	require.Equal("second draft", note.Content)

	w = env.do(jsonRequest(t, "DELETE", noteURI, nil))
	require.Equal(http.StatusOK, w.Code, w.Body.String())
	del := decodeBody(t, w.Body.Bytes())
	require.Equal("Delete", del["type"])
	require.Equal("Tombstone", del["object"].(map[string]any)["type"])

	_, err = models.NewNotes(env.DB).FindByURI(noteURI)
	require.ErrorIs(err, gorm.ErrRecordNotFound)

	// Create, Update and Delete each reached the follower.
	reqs := env.transport.RequestsTo(bobURI + "/inbox")
	require.Len(reqs, 3)

	w = env.do(jsonRequest(t, "DELETE", noteURI, nil))
	require.Equal(http.StatusNotFound, w.Code)
}

func TestNotesShowNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.createActor(t, "alice")
	for _, id := range []string{"1", "not-a-number"} {
		w := env.do(httptest.NewRequest("GET", notesURL("alice")+"/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code, id)
	}
}

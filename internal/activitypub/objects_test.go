package activitypub

import (
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestParseReferenceForms(t *testing.T) {
	require := require.New(t)

	a, err := Parse(decode(t, `{
		"id": "https://example.com/users/bob/follows/1",
		"type": "Follow",
		"actor": {"id": "https://example.com/users/bob", "type": "Person", "inbox": "https://example.com/users/bob/inbox"},
		"object": "https://example.com/users/alice",
		"to": "https://example.com/users/alice",
		"published": "2024-01-01T00:00:00Z"
	}`))
	require.NoError(err)
	require.Equal(Follow, a.Type)
	require.Equal("https://example.com/users/bob", a.Actor.ID())
	require.Equal("https://example.com/users/bob/inbox", a.Actor.Inbox())
	_, embedded := a.Actor.Object()
	require.True(embedded)
	require.Equal("https://example.com/users/alice", a.Object.ID())
	_, embedded = a.Object.Object()
	require.False(embedded)
	require.Equal([]string{"https://example.com/users/alice"}, a.To)
	require.True(a.Published.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseNestedActivity(t *testing.T) {
	require := require.New(t)

	a, err := Parse(decode(t, `{
		"id": "https://example.com/users/bob/undo/1",
		"type": "Undo",
		"actor": "https://example.com/users/bob",
		"object": {
			"id": "https://example.com/users/bob/likes/1",
			"type": "Like",
			"actor": "https://example.com/users/bob",
			"object": "https://example.com/users/alice/notes/1"
		}
	}`))
	require.NoError(err)
	inner, ok := a.Object.Activity()
	require.True(ok)
	require.Equal(Like, inner.Type)
	require.Equal("https://example.com/users/bob", inner.Actor.ID())
	require.Equal("https://example.com/users/alice/notes/1", inner.Object.ID())
	require.Equal("https://example.com/users/bob/likes/1", a.Object.ID())
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"missing type":          `{"id": "x"}`,
		"numeric actor":         `{"type": "Like", "actor": 7}`,
		"embedded without id":   `{"type": "Like", "actor": "a", "object": {"type": "Note"}}`,
		"two objects":           `{"type": "Like", "actor": "a", "object": ["b", "c"]}`,
		"malformed nested type": `{"type": "Undo", "actor": "a", "object": {"type": "Like", "actor": 1}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(decode(t, doc))
			require.ErrorIs(t, err, ErrMalformedActivity)
		})
	}
}

func TestParseKeepsUnknownTypes(t *testing.T) {
	require := require.New(t)
	a, err := Parse(decode(t, `{"type": "EmojiReact", "actor": "https://example.com/users/bob", "object": "x"}`))
	require.NoError(err)
	require.Equal(Type("EmojiReact"), a.Type)
	require.False(a.Type.IsActivity())
}

func TestActivityMapRoundTrip(t *testing.T) {
	require := require.New(t)

	follow := &Activity{
		ID:     "https://example.com/users/bob/follows/1",
		Type:   Follow,
		Actor:  RefID("https://example.com/users/bob"),
		Object: RefID("https://example.com/users/alice"),
	}
	accept := &Activity{
		ID:     "https://example.com/users/alice#accepts/1",
		Type:   Accept,
		Actor:  RefID("https://example.com/users/alice"),
		Object: RefActivity(follow),
		To:     []string{"https://example.com/users/bob"},
	}
	m := accept.Map()
	require.Equal(Context, m["@context"])
	inner, ok := m["object"].(map[string]any)
	require.True(ok)
	require.Equal("Follow", inner["type"])
	require.NotContains(inner, "@context")

	b, err := json.Marshal(m)
	require.NoError(err)
	var decoded map[string]any
	require.NoError(json.Unmarshal(b, &decoded))
	parsed, err := Parse(decoded)
	require.NoError(err)
	require.Equal(accept.ID, parsed.ID)
	nested, ok := parsed.Object.Activity()
	require.True(ok)
	require.Equal(follow.ID, nested.ID)
	require.Equal(follow.Object.ID(), nested.Object.ID())
}

func TestAddressed(t *testing.T) {
	require := require.New(t)
	a := &Activity{To: []string{Public}, CC: []string{"https://example.com/users/alice/followers"}}
	require.True(a.Addressed(Public))
	require.True(a.Addressed("https://example.com/users/alice/followers"))
	require.False(a.Addressed("https://example.com/users/bob"))
}

func TestNoteFromMap(t *testing.T) {
	require := require.New(t)
	n, err := NoteFromMap(decode(t, `{
		"id": "https://example.com/users/alice/notes/1",
		"type": "Note",
		"attributedTo": "https://example.com/users/alice",
		"content": "hello @bob",
		"to": ["https://www.w3.org/ns/activitystreams#Public"]
	}`))
	require.NoError(err)
	require.Equal("hello @bob", n.Content)
	require.Equal([]string{Public}, n.To)
	require.Equal([]string{}, n.Map()["cc"])

	_, err = NoteFromMap(decode(t, `{"id": "x", "type": "Article"}`))
	require.ErrorIs(err, ErrMalformedActivity)
}

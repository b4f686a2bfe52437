package webfinger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcctParse(t *testing.T) {
	tc := []struct {
		in     string
		expect Acct
	}{
		{"acct:foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"acct%3Afoo%40bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"@foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"foo", Acct{User: "foo"}},
	}
	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			req := require.New(t)
			got, err := Parse(tt.in)
			req.NoError(err)
			req.Equal(tt.expect, *got)
		})
	}
}

func TestAcctParseInvalid(t *testing.T) {
	for _, in := range []string{"", "acct:", "@", "a@b@c", "acct:@fedinode.test"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
		})
	}
}

func TestAcctDocument(t *testing.T) {
	require := require.New(t)

	acct := Acct{User: "alice", Host: "example.com"}
	require.Equal("acct:alice@example.com", acct.String())
	require.Equal("https://example.com/.well-known/webfinger?resource=acct%3Aalice%40example.com", acct.Webfinger())

	doc := acct.Document()
	href, err := doc.ActivityPub()
	require.NoError(err)
	require.Equal("https://example.com/users/alice", href)
	require.Equal("acct:alice@example.com", doc.Subject)

	_, err = (&Webfinger{}).ActivityPub()
	require.Error(err)
}

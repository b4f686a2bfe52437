// Package mentions extracts @user and @user@host handles from note content.
package mentions

import (
	"regexp"
	"strings"

	"github.com/fedinode/fedinode/internal/webfinger"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// handle matches @user and @user@host. The leading group stops email
// addresses such as foo@example.com from matching.
var handle = regexp.MustCompile(`(?:^|[^\w@])@([a-zA-Z0-9_]+)(?:@([a-zA-Z0-9](?:[a-zA-Z0-9.-]*[a-zA-Z0-9])?))?`)

// Parse returns the distinct handles mentioned in content, which may be HTML,
// in order of first appearance. Handles without a host have an empty Host.
func Parse(content string) []webfinger.Acct {
	seen := make(map[webfinger.Acct]bool)
	var accts []webfinger.Acct
	for _, m := range handle.FindAllStringSubmatch(Text(content), -1) {
		acct := webfinger.Acct{User: m[1], Host: strings.ToLower(m[2])}
		if seen[acct] {
			continue
		}
		seen[acct] = true
		accts = append(accts, acct)
	}
	return accts
}

// inline elements do not separate words; Mastodon wraps the user part of
// a mention in a span inside the link.
var inline = map[atom.Atom]bool{
	atom.A:      true,
	atom.Span:   true,
	atom.B:      true,
	atom.I:      true,
	atom.Em:     true,
	atom.Strong: true,
}

// Text returns the text content of an HTML fragment. Block level elements
// are replaced by a space.
func Text(content string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if !inline[atom.Lookup(name)] {
				sb.WriteByte(' ')
			}
		}
	}
}

// Package webfinger implements the subset of RFC 7033 needed to map acct:
// handles to ActivityPub actor ids.
package webfinger

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []Link   `json:"links"`
}

// ActivityPub returns the href of the self link with an ActivityPub media type.
func (wf *Webfinger) ActivityPub() (string, error) {
	for _, link := range wf.Links {
		if link.Type == "application/activity+json" {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("no ActivityPub link found")
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL for the webfinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// ID returns the actor id this node assigns to the Acct.
func (a *Acct) ID() string {
	return "https://" + a.Host + "/users/" + a.User
}

// Document returns the webfinger document describing a local Acct.
func (a *Acct) Document() *Webfinger {
	return &Webfinger{
		Subject: a.String(),
		Aliases: []string{a.ID()},
		Links: []Link{{
			Rel:  "self",
			Type: "application/activity+json",
			Href: a.ID(),
		}},
	}
}

// Fetch retrieves the webfinger document for the Acct from its host.
func (a *Acct) Fetch(ctx context.Context) (*Webfinger, error) {
	var webfinger Webfinger
	err := requests.URL(a.Webfinger()).ToJSON(&webfinger).Fetch(ctx)
	return &webfinger, err
}

// Parse parses an acct: URI or a @user@host handle. The host is optional.
func Parse(query string) (*Acct, error) {
	// In case the handle has been URL encoded
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	if q, ok := strings.CutPrefix(query, "acct:"); ok {
		query = q
	} else {
		// a bare handle may be written @user@host.
		query = strings.TrimPrefix(query, "@")
	}

	user, host, _ := strings.Cut(query, "@")
	if user == "" || strings.Contains(host, "@") {
		return nil, fmt.Errorf("invalid acct: %q", query)
	}
	return &Acct{User: user, Host: host}, nil
}

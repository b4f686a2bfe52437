package activitypub

import (
	"fmt"
	"time"
)

// Note is an ActivityStreams Note.
type Note struct {
	ID           string
	AttributedTo string
	Content      string
	InReplyTo    string
	Published    time.Time
	To           []string
	CC           []string
}

// NoteFromMap decodes an embedded Note object.
func NoteFromMap(m map[string]any) (*Note, error) {
	if typ := stringFromAny(m["type"]); typ != "Note" {
		return nil, fmt.Errorf("%w: expected Note, got %q", ErrMalformedActivity, typ)
	}
	n := &Note{
		ID:           stringFromAny(m["id"]),
		AttributedTo: stringFromAny(m["attributedTo"]),
		Content:      stringFromAny(m["content"]),
		InReplyTo:    stringFromAny(m["inReplyTo"]),
		Published:    timeFromAnyOrZero(m["published"]),
		To:           stringsFromAny(m["to"]),
		CC:           stringsFromAny(m["cc"]),
	}
	if n.ID == "" {
		return nil, fmt.Errorf("%w: note without id", ErrMalformedActivity)
	}
	return n, nil
}

// Map returns the JSON-LD representation of the note, without @context.
func (n *Note) Map() map[string]any {
	m := map[string]any{
		"type":         "Note",
		"id":           n.ID,
		"attributedTo": n.AttributedTo,
		"content":      n.Content,
		"to":           nonNil(n.To),
		"cc":           nonNil(n.CC),
	}
	if n.InReplyTo != "" {
		m["inReplyTo"] = n.InReplyTo
	} else {
		m["inReplyTo"] = nil
	}
	if !n.Published.IsZero() {
		m["published"] = n.Published.UTC().Format(time.RFC3339)
	}
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

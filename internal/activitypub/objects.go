package activitypub

import (
	"errors"
	"fmt"
	"time"
)

const (
	// Public is the addressing sentinel for publicly visible activities.
	Public = "https://www.w3.org/ns/activitystreams#Public"

	// Context is the JSON-LD context of ActivityStreams documents.
	Context = "https://www.w3.org/ns/activitystreams"

	// ContentType is the media type activities are exchanged with.
	ContentType = "application/activity+json"
)

// Type is the type of an activity.
type Type string

const (
	Follow   Type = "Follow"
	Accept   Type = "Accept"
	Create   Type = "Create"
	Update   Type = "Update"
	Delete   Type = "Delete"
	Like     Type = "Like"
	Announce Type = "Announce"
	Undo     Type = "Undo"
)

// IsActivity reports whether t is one of the activity types this node understands.
func (t Type) IsActivity() bool {
	switch t {
	case Follow, Accept, Create, Update, Delete, Like, Announce, Undo:
		return true
	}
	return false
}

// maxDepth bounds the nesting of activities inside activities, eg. Undo{Like}.
const maxDepth = 4

// Ref is the value of an actor or object property. It is exactly one of a
// bare URI, an embedded object (a Note, an actor document), or a nested activity.
type Ref struct {
	id       string
	object   map[string]any
	activity *Activity
}

// RefID returns a Ref to the object identified by id.
func RefID(id string) Ref { return Ref{id: id} }

// RefObject returns a Ref embedding obj.
func RefObject(obj map[string]any) Ref {
	return Ref{id: stringFromAny(obj["id"]), object: obj}
}

// RefActivity returns a Ref embedding the activity a.
func RefActivity(a *Activity) Ref { return Ref{id: a.ID, activity: a} }

// ID returns the URI of the referenced object, whichever form the Ref takes.
func (r Ref) ID() string { return r.id }

// IsZero reports whether the Ref is empty.
func (r Ref) IsZero() bool { return r.id == "" && r.object == nil && r.activity == nil }

// Object returns the embedded object, if any.
func (r Ref) Object() (map[string]any, bool) { return r.object, r.object != nil }

// Activity returns the nested activity, if any.
func (r Ref) Activity() (*Activity, bool) { return r.activity, r.activity != nil }

// Inbox returns the inbox of an embedded actor document, or the empty string.
func (r Ref) Inbox() string {
	return stringFromAny(r.object["inbox"])
}

// value returns the wire form of the Ref.
func (r Ref) value() any {
	switch {
	case r.activity != nil:
		return r.activity.properties()
	case r.object != nil:
		return r.object
	default:
		return r.id
	}
}

// Activity is a normalised ActivityStreams activity.
type Activity struct {
	ID        string
	Type      Type
	Actor     Ref
	Object    Ref
	To        []string
	CC        []string
	Published time.Time
}

// Addressed reports whether uri appears in the to or cc of the activity.
func (a *Activity) Addressed(uri string) bool {
	for _, s := range a.To {
		if s == uri {
			return true
		}
	}
	for _, s := range a.CC {
		if s == uri {
			return true
		}
	}
	return false
}

// Map returns the JSON-LD document for the activity.
func (a *Activity) Map() map[string]any {
	m := a.properties()
	m["@context"] = Context
	return m
}

func (a *Activity) properties() map[string]any {
	m := map[string]any{
		"type": string(a.Type),
	}
	if a.ID != "" {
		m["id"] = a.ID
	}
	if !a.Actor.IsZero() {
		m["actor"] = a.Actor.value()
	}
	if !a.Object.IsZero() {
		m["object"] = a.Object.value()
	}
	if len(a.To) > 0 {
		m["to"] = a.To
	}
	if len(a.CC) > 0 {
		m["cc"] = a.CC
	}
	if !a.Published.IsZero() {
		m["published"] = a.Published.UTC().Format(time.RFC3339)
	}
	return m
}

// ErrMalformedActivity is returned by Parse for documents that are not activities.
var ErrMalformedActivity = errors.New("malformed activity")

// Parse normalises a decoded JSON-LD document into an Activity.
func Parse(doc map[string]any) (*Activity, error) {
	return parse(doc, 0)
}

func parse(doc map[string]any, depth int) (*Activity, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nested too deeply", ErrMalformedActivity)
	}
	typ := stringFromAny(doc["type"])
	if typ == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedActivity)
	}
	a := &Activity{
		ID:        stringFromAny(doc["id"]),
		Type:      Type(typ),
		To:        stringsFromAny(doc["to"]),
		CC:        stringsFromAny(doc["cc"]),
		Published: timeFromAnyOrZero(doc["published"]),
	}
	var err error
	if a.Actor, err = parseRef(doc["actor"], depth); err != nil {
		return nil, fmt.Errorf("actor: %w", err)
	}
	if a.Object, err = parseRef(doc["object"], depth); err != nil {
		return nil, fmt.Errorf("object: %w", err)
	}
	return a, nil
}

func parseRef(v any, depth int) (Ref, error) {
	switch v := v.(type) {
	case nil:
		return Ref{}, nil
	case string:
		return RefID(v), nil
	case map[string]any:
		if Type(stringFromAny(v["type"])).IsActivity() {
			a, err := parse(v, depth+1)
			if err != nil {
				return Ref{}, err
			}
			return RefActivity(a), nil
		}
		if stringFromAny(v["id"]) == "" {
			return Ref{}, fmt.Errorf("%w: embedded object without id", ErrMalformedActivity)
		}
		return RefObject(v), nil
	case []any:
		// some servers send single element arrays
		if len(v) == 1 {
			return parseRef(v[0], depth)
		}
		return Ref{}, fmt.Errorf("%w: expected a single reference, got %d", ErrMalformedActivity, len(v))
	default:
		return Ref{}, fmt.Errorf("%w: unexpected reference type %T", ErrMalformedActivity, v)
	}
}

// Actor is the subset of a remote actor document this node uses.
type Actor struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	PreferredUsername string `json:"preferredUsername"`
	Name              string `json:"name"`
	Inbox             string `json:"inbox"`
	Outbox            string `json:"outbox"`
	Followers         string `json:"followers"`
	Following         string `json:"following"`
	Endpoints         struct {
		SharedInbox string `json:"sharedInbox"`
	} `json:"endpoints"`
	PublicKey struct {
		ID           string `json:"id"`
		Owner        string `json:"owner"`
		PublicKeyPem string `json:"publicKeyPem"`
	} `json:"publicKey"`
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

// stringsFromAny accepts a single string or an array of strings.
func stringsFromAny(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		var s []string
		for _, x := range v {
			if str, ok := x.(string); ok {
				s = append(s, str)
			}
		}
		return s
	case []string:
		return v
	default:
		return nil
	}
}

func timeFromAnyOrZero(v any) time.Time {
	switch v := v.(type) {
	case string:
		t, _ := time.Parse(time.RFC3339, v)
		return t
	case time.Time:
		return v
	default:
		return time.Time{}
	}
}

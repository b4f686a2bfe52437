// Package aptest provides an in memory http.RoundTripper standing in for
// remote ActivityPub servers in tests.
package aptest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-json-experiment/json"
)

// Request is a request received by a Transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Transport records every request it receives and answers from its tables.
// Unknown POSTs are answered with 202 Accepted, unknown GETs with 404.
type Transport struct {
	mu        sync.Mutex
	requests  []Request
	statuses  map[string]int
	failures  map[string]error
	documents map[string][]byte
}

// NewTransport returns an empty Transport.
func NewTransport() *Transport {
	return &Transport{
		statuses:  make(map[string]int),
		failures:  make(map[string]error),
		documents: make(map[string][]byte),
	}
}

// Respond answers requests to url with status.
func (t *Transport) Respond(url string, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[url] = status
}

// Fail answers requests to url with a transport error.
func (t *Transport) Fail(url string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[url] = err
}

// Serve answers GET requests to url with doc encoded as an activity.
func (t *Transport) Serve(url string, doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.documents[url] = b
	return nil
}

// Requests returns the requests received so far.
func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

// RequestsTo returns the requests received for url.
func (t *Transport) RequestsTo(url string) []Request {
	var matched []Request
	for _, r := range t.Requests() {
		if r.URL == url {
			matched = append(matched, r)
		}
	}
	return matched
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}
	url := req.URL.String()

	t.mu.Lock()
	t.requests = append(t.requests, Request{
		Method: req.Method,
		URL:    url,
		Header: req.Header.Clone(),
		Body:   body,
	})
	failure := t.failures[url]
	status, hasStatus := t.statuses[url]
	doc, hasDoc := t.documents[url]
	t.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	resp := &http.Response{
		Status:     fmt.Sprintf("%d %s", http.StatusOK, http.StatusText(http.StatusOK)),
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Request:    req,
	}
	switch {
	case hasStatus:
		resp.StatusCode = status
	case req.Method == http.MethodGet && hasDoc:
		resp.Header.Set("Content-Type", "application/activity+json")
		resp.Body = io.NopCloser(bytes.NewReader(doc))
	case req.Method == http.MethodGet:
		resp.StatusCode = http.StatusNotFound
	default:
		resp.StatusCode = http.StatusAccepted
	}
	resp.Status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return resp, nil
}

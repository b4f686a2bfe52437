package activitypub

import (
	"context"
	"crypto"
	"crypto/rsa"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/fedinode/fedinode/internal/httpsig"
	"github.com/go-json-experiment/json"
)

// DefaultTimeout is the delivery timeout used when none is configured.
const DefaultTimeout = 10 * time.Second

// Client is an ActivityPub client which signs its requests as a local actor.
type Client struct {
	keyID      string
	privateKey crypto.PrivateKey
	policy     *Policy
	timeout    time.Duration
	transport  http.RoundTripper
}

// Signer represents an object that can sign HTTP requests.
type Signer interface {
	PublicKeyID() string
	PrivKey() (*rsa.PrivateKey, error)
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy sets the policy inbox URLs are checked against before delivery.
func WithPolicy(p *Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithTimeout bounds each outbound request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTransport replaces the underlying http.RoundTripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// NewClient returns a new ActivityPub client signing as signAs.
// A nil signAs returns a client which sends unsigned requests.
func NewClient(signAs Signer, opts ...Option) (*Client, error) {
	c := &Client{
		policy:    DefaultPolicy(),
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
	}
	if signAs != nil {
		privateKey, err := signAs.PrivKey()
		if err != nil {
			return nil, err
		}
		c.keyID = signAs.PublicKeyID()
		c.privateKey = privateKey
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch fetches the ActivityPub resource at the given URL and decodes it into the given object.
func (c *Client) Fetch(ctx context.Context, uri string, obj any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return requests.URL(uri).
		Accept(`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`).
		Transport(c.signed(nil)).
		CheckContentType(
			"application/ld+json",
			"application/activity+json",
			"application/json",
		).
		CheckStatus(http.StatusOK).
		ToJSON(obj).
		Fetch(ctx)
}

// Post delivers activity to the inbox at url.
func (c *Client) Post(ctx context.Context, url string, activity map[string]any) error {
	body, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return c.Deliver(ctx, url, body)
}

// Deliver posts an already serialised activity to the inbox at url. The url is
// checked against the client's policy before any network call. Delivery is
// attempted once; non 2xx responses and transport errors are returned.
func (c *Client) Deliver(ctx context.Context, url string, body []byte) error {
	if err := c.policy.Check(url); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return requests.URL(url).
		BodyBytes(body).
		Header("Content-Type", ContentType).
		Transport(c.signed(body)).
		Fetch(ctx)
}

func (c *Client) signed(body []byte) requests.RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if c.privateKey == nil {
			return c.transport.RoundTrip(req)
		}
		if err := httpsig.Sign(req, c.keyID, c.privateKey, body); err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
		return c.transport.RoundTrip(req)
	}
}

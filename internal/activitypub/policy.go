package activitypub

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for inbox URLs rejected by a Policy.
var ErrInvalidURL = errors.New("invalid inbox URL")

// PolicyMode selects how a Policy treats its domain list.
type PolicyMode string

const (
	// AllowList accepts only the listed domains.
	AllowList PolicyMode = "allowlist"
	// BlockList accepts any domain except the listed ones and their subdomains.
	BlockList PolicyMode = "blocklist"
)

// DefaultAllowedDomains are the federated domains accepted by the default policy.
var DefaultAllowedDomains = []string{"example.com", "another-allowed-domain.com"}

// Policy decides which remote inbox URLs this node will deliver to.
type Policy struct {
	Mode    PolicyMode
	Domains []string
}

// DefaultPolicy returns an allow-list policy for DefaultAllowedDomains.
func DefaultPolicy() *Policy {
	return &Policy{
		Mode:    AllowList,
		Domains: DefaultAllowedDomains,
	}
}

// Check returns nil if inbox is an https URL whose final path segment is
// inbox, with no traversal in its path, on a domain the policy accepts.
// Otherwise it returns an error wrapping ErrInvalidURL.
func (p *Policy) Check(inbox string) error {
	u, err := url.Parse(inbox)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q is not https", ErrInvalidURL, u.Scheme)
	}
	if strings.Contains(u.Path, "..") {
		return fmt.Errorf("%w: path %q contains traversal", ErrInvalidURL, u.Path)
	}
	segments := strings.Split(u.Path, "/")
	if segments[len(segments)-1] != "inbox" {
		return fmt.Errorf("%w: path %q does not end in inbox", ErrInvalidURL, u.Path)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	switch p.Mode {
	case BlockList:
		for _, d := range p.Domains {
			d = strings.ToLower(d)
			if host == d || strings.HasSuffix(host, "."+d) {
				return fmt.Errorf("%w: host %q is blocked", ErrInvalidURL, host)
			}
		}
		return nil
	case AllowList, "":
		for _, d := range p.Domains {
			if host == strings.ToLower(d) {
				return nil
			}
		}
		return fmt.Errorf("%w: host %q is not allowed", ErrInvalidURL, host)
	default:
		return fmt.Errorf("%w: unknown policy mode %q", ErrInvalidURL, p.Mode)
	}
}

// Valid reports whether inbox passes Check.
func (p *Policy) Valid(inbox string) bool {
	return p.Check(inbox) == nil
}

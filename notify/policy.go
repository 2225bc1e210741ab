package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Default suppression rules. Tenants without an assigned room get a 404 from
// the room-details lookup, which is expected and never shown.
var (
	DefaultSuppressedEndpoints = []string{
		"**/tenant/room-details",
		"**/tenant/room-details/**",
	}
	DefaultSuppressedMessages = []string{
		"room assignment",
	}
)

// Policy decides which failures stay silent.
type Policy struct {
	endpoints []string
	messages  []string
}

// DefaultPolicy returns the policy built from the default rules.
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(DefaultSuppressedEndpoints, DefaultSuppressedMessages)
	return p
}

// NewPolicy builds a policy. Endpoint patterns are doublestar globs matched
// against the request path without its leading slash; message rules are
// case-insensitive substrings.
func NewPolicy(endpoints, messages []string) (*Policy, error) {
	p := &Policy{}
	for _, pattern := range endpoints {
		pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "/")
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid endpoint pattern %q", pattern)
		}
		p.endpoints = append(p.endpoints, pattern)
	}
	for _, m := range messages {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			p.messages = append(p.messages, m)
		}
	}
	return p, nil
}

// Suppressed reports whether a failure of the request to rawURL with the
// given message must not be shown. Endpoint rules win regardless of message.
func (p *Policy) Suppressed(rawURL, message string) bool {
	return p.SuppressedEndpoint(rawURL) || p.SuppressedMessage(message)
}

// SuppressedEndpoint reports whether rawURL targets a silenced endpoint.
func (p *Policy) SuppressedEndpoint(rawURL string) bool {
	if p == nil || rawURL == "" {
		return false
	}
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.Trim(path, "/")

	for _, pattern := range p.endpoints {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// SuppressedMessage reports whether the message text matches a silenced rule.
func (p *Policy) SuppressedMessage(message string) bool {
	if p == nil || message == "" {
		return false
	}
	lower := strings.ToLower(message)
	for _, m := range p.messages {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Package visibility decides which part of the catalog a request may
// see. Access is all-or-nothing: a caller presenting the shared secret
// sees the full library, everyone else sees it without the excluded
// shelves.
package visibility

import (
	"crypto/subtle"

	"github.com/raindrop213/bibi-library/internal/store"
)

// Policy evaluates request credentials against the configured secret
// and produces the matching query fragment.
type Policy struct {
	password     string
	excludedTags []string
}

// NewPolicy creates a policy. An empty password means no secret is
// configured and every caller is unauthorized for the hidden shelves.
func NewPolicy(password string, excludedTags []string) *Policy {
	return &Policy{password: password, excludedTags: excludedTags}
}

// Authorized reports whether the presented credential grants full
// visibility. The comparison is constant-time.
func (p *Policy) Authorized(credential string) bool {
	if p.password == "" || credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.password), []byte(credential)) == 1
}

// Fragment returns the query fragment enforcing the caller's
// visibility. Authorized callers get the empty fragment.
func (p *Policy) Fragment(credential string) store.Fragment {
	if p.Authorized(credential) {
		return store.Fragment{}
	}
	return store.ExcludedTagsFragment(p.excludedTags)
}

// ExcludedTags exposes the configured hidden shelves so listings can
// filter their labels for unauthorized callers.
func (p *Policy) ExcludedTags() []string {
	return p.excludedTags
}

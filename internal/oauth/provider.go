// Package oauth normalizes the four external identity providers behind a
// single Provider interface. Facebook, GitHub and Google speak OAuth 2.0
// authorization code flow; Steam speaks OpenID 2.0. The rest of the service
// only ever sees a Profile.
package oauth

import (
	"context"
	"errors"
	"net/http"

	"github.com/fxrumble/identity-service/internal/domain"
)

// ErrProfileIncomplete is returned when a provider response is missing the
// provider-scoped user id.
var ErrProfileIncomplete = errors.New("provider profile is missing required id")

// Profile is the normalized identity a provider asserts about the user.
// Email is empty when the provider reports none (Steam always does).
type Profile struct {
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
}

// Provider drives one external identity provider's redirect flow
type Provider interface {
	// Name returns the provider tag this value serves
	Name() domain.Provider

	// AuthURL builds the URL the user agent is redirected to, carrying the
	// anti-CSRF state so it comes back on the callback
	AuthURL(state string) string

	// Callback consumes the provider redirect and resolves the asserted profile
	Callback(ctx context.Context, r *http.Request) (*Profile, error)
}

// Registry selects a provider by its tag
type Registry struct {
	providers map[domain.Provider]Provider
}

// NewRegistry builds a registry from the given providers
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[domain.Provider]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider registered under name
func (r *Registry) Get(name domain.Provider) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

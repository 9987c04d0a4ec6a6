package auth

import (
	"github.com/readmeforge/readme-front/internal/idp"
	"github.com/readmeforge/readme-front/internal/log"
)

// Initiator builds the provider authorization URL that starts a login
type Initiator struct {
	provider idp.Provider
}

// NewInitiator creates an initiator for provider
func NewInitiator(provider idp.Provider) *Initiator {
	return &Initiator{provider: provider}
}

// BuildAuthorizationURL returns the URL the browser must visit to log in.
// returnTo is carried verbatim as the OAuth state and only validated when it
// comes back, so the same input always yields the same URL.
func (i *Initiator) BuildAuthorizationURL(returnTo string) (string, error) {
	if missing := i.provider.Missing(); len(missing) > 0 {
		return "", &ConfigurationError{Missing: missing}
	}

	authURL := i.provider.AuthURL(returnTo)

	log.LogTraceWithFields("auth", "Built authorization URL", map[string]any{
		"provider": i.provider.Type(),
		"returnTo": returnTo,
	})
	return authURL, nil
}

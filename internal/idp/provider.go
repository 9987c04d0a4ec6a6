package idp

import (
	"context"

	"golang.org/x/oauth2"
)

// UserInfo is the identity an OAuth provider reports for the signed-in user.
type UserInfo struct {
	ProviderType string   `json:"provider_type"`
	Subject      string   `json:"sub"`
	Login        string   `json:"login"`
	Name         string   `json:"name,omitempty"`
	AvatarURL    string   `json:"avatar_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Provider abstracts identity provider operations.
type Provider interface {
	// Type returns the provider type identifier (e.g., "github").
	Type() string

	// Missing lists the settings that must be supplied before AuthURL and
	// ExchangeCode can work. Empty when the provider is fully configured.
	Missing() []string

	// AuthURL generates the authorization URL for the OAuth flow.
	AuthURL(state string) string

	// ExchangeCode exchanges an authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// UserInfo fetches the identity behind token.
	UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

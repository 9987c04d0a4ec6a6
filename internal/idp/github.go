package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/readmeforge/readme-front/internal/ioutil"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// DefaultGitHubAPIURL is the public GitHub REST API
const DefaultGitHubAPIURL = "https://api.github.com"

// DefaultGitHubOAuthURL hosts the public authorize and token endpoints
const DefaultGitHubOAuthURL = "https://github.com"

// GitHubScopes are requested on every login: the profile and repository
// read access for README generation.
var GitHubScopes = []string{"read:user", "repo"}

// GitHubProvider implements the Provider interface for GitHub OAuth.
// GitHub uses OAuth 2.0 (not OIDC) and has its own API for user info.
type GitHubProvider struct {
	config     oauth2.Config
	apiBaseURL string // defaults to https://api.github.com, overridden for tests and GitHub Enterprise
}

// githubUserResponse represents GitHub's user API response.
type githubUserResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubOption configures a GitHubProvider
type GitHubOption func(*GitHubProvider)

// WithEndpoint replaces the github.com authorize and token endpoints,
// for GitHub Enterprise Server or a test double.
func WithEndpoint(endpoint oauth2.Endpoint) GitHubOption {
	return func(p *GitHubProvider) {
		p.config.Endpoint = endpoint
	}
}

// EnterpriseEndpoint returns the OAuth endpoints served under baseURL.
// For the public github.com host it returns github.Endpoint unchanged.
func EnterpriseEndpoint(baseURL string) oauth2.Endpoint {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" || baseURL == DefaultGitHubOAuthURL {
		return github.Endpoint
	}
	return oauth2.Endpoint{
		AuthURL:       baseURL + "/login/oauth/authorize",
		TokenURL:      baseURL + "/login/oauth/access_token",
		DeviceAuthURL: baseURL + "/login/device/code",
	}
}

// NewGitHubProvider creates a new GitHub OAuth provider. An empty apiBaseURL
// selects the public GitHub API.
func NewGitHubProvider(clientID, clientSecret, redirectURI, apiBaseURL string, opts ...GitHubOption) *GitHubProvider {
	if apiBaseURL == "" {
		apiBaseURL = DefaultGitHubAPIURL
	}
	p := &GitHubProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       GitHubScopes,
			Endpoint:     github.Endpoint,
		},
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type returns the provider type.
func (p *GitHubProvider) Type() string {
	return "github"
}

// Missing reports unset OAuth app settings.
func (p *GitHubProvider) Missing() []string {
	var missing []string
	if p.config.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if p.config.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if p.config.RedirectURL == "" {
		missing = append(missing, "redirect_uri")
	}
	return missing
}

// AuthURL generates the authorization URL. state is passed through verbatim.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens.
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

// UserInfo fetches user identity from GitHub's API.
func (p *GitHubProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := p.config.Client(ctx, token)

	user, err := p.fetchUser(ctx, client)
	if err != nil {
		return nil, err
	}
	if user.ID == 0 || user.Login == "" {
		return nil, fmt.Errorf("incomplete user profile from GitHub")
	}

	return &UserInfo{
		ProviderType: "github",
		Subject:      strconv.FormatInt(user.ID, 10),
		Login:        user.Login,
		Name:         user.Name,
		AvatarURL:    user.AvatarURL,
		Scopes:       grantedScopes(token),
	}, nil
}

// grantedScopes reads the scopes GitHub actually granted, which the user
// may have narrowed on the consent screen. GitHub returns them comma separated.
func grantedScopes(token *oauth2.Token) []string {
	raw, _ := token.Extra("scope").(string)
	if raw == "" {
		return nil
	}
	var scopes []string
	for _, s := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func (p *GitHubProvider) get(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, ioutil.ErrorSummary(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (p *GitHubProvider) fetchUser(ctx context.Context, client *http.Client) (*githubUserResponse, error) {
	var user githubUserResponse
	if err := p.get(ctx, client, "/user", &user); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

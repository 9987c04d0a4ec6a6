package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/readmeforge/readme-front/internal/idp"
	"github.com/readmeforge/readme-front/internal/log"
	"github.com/readmeforge/readme-front/internal/session"
	"github.com/readmeforge/readme-front/internal/storage"
)

// DefaultExchangeTimeout bounds the code exchange and the identity fetch together
const DefaultExchangeTimeout = 30 * time.Second

// CallbackParams are the query parameters GitHub appends to the redirect URI
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Result is a completed login
type Result struct {
	Identity  session.Identity
	Token     string
	ExpiresAt time.Time
	ReturnTo  string
}

// Authenticator completes the OAuth callback: code exchange, identity fetch
// and session token minting. It never sets cookies or writes responses.
type Authenticator struct {
	provider        idp.Provider
	codec           *session.Codec
	users           storage.Storage
	exchangeTimeout time.Duration
}

// AuthenticatorOption configures an Authenticator
type AuthenticatorOption func(*Authenticator)

// WithUserDirectory records every successful login in users
func WithUserDirectory(users storage.Storage) AuthenticatorOption {
	return func(a *Authenticator) {
		a.users = users
	}
}

// WithExchangeTimeout overrides DefaultExchangeTimeout
func WithExchangeTimeout(d time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		if d > 0 {
			a.exchangeTimeout = d
		}
	}
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(provider idp.Provider, codec *session.Codec, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		provider:        provider,
		codec:           codec,
		exchangeTimeout: DefaultExchangeTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Complete runs the callback once. The code is exchanged exactly once; a
// rejected or reused code is a ProviderError and is not retried.
func (a *Authenticator) Complete(ctx context.Context, params CallbackParams) (*Result, error) {
	if missing := a.provider.Missing(); len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	if params.Error != "" {
		if params.Error == ErrorCodeAccessDenied {
			return nil, ErrAccessDenied
		}
		return nil, &ProviderError{
			Stage: StageAuthorize,
			Err:   fmt.Errorf("%s: %s", params.Error, params.ErrorDescription),
		}
	}

	if params.Code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, a.exchangeTimeout)
	defer cancel()

	token, err := a.provider.ExchangeCode(ctx, params.Code)
	if err != nil {
		return nil, &ProviderError{Stage: StageExchange, Err: err}
	}

	info, err := a.provider.UserInfo(ctx, token)
	if err != nil {
		return nil, &ProviderError{Stage: StageIdentity, Err: err}
	}

	identity := session.Identity{
		ID:        info.Subject,
		Login:     info.Login,
		Name:      info.Name,
		AvatarURL: info.AvatarURL,
		Scopes:    info.Scopes,
	}

	sessionToken, expiresAt, err := a.codec.Mint(identity)
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}

	a.recordLogin(ctx, identity)

	returnTo := SafeReturnPath(params.State)
	if returnTo != params.State && params.State != "" {
		log.LogWarnWithFields("auth", "Rejected unsafe return path", map[string]any{
			"state": params.State,
			"login": identity.Login,
		})
	}

	log.LogInfoWithFields("auth", "User authenticated", map[string]any{
		"login":    identity.Login,
		"id":       identity.ID,
		"returnTo": returnTo,
	})

	return &Result{
		Identity:  identity,
		Token:     sessionToken,
		ExpiresAt: expiresAt,
		ReturnTo:  returnTo,
	}, nil
}

// recordLogin stores the login in the user directory. Failures are logged
// and never block the login.
func (a *Authenticator) recordLogin(ctx context.Context, identity session.Identity) {
	if a.users == nil {
		return
	}
	err := a.users.UpsertUser(ctx, storage.UserRecord{
		ID:        identity.ID,
		Login:     identity.Login,
		Name:      identity.Name,
		AvatarURL: identity.AvatarURL,
	})
	if err != nil {
		fields := map[string]any{
			"login": identity.Login,
			"error": err.Error(),
		}
		if errors.Is(err, context.DeadlineExceeded) {
			fields["timeout"] = a.exchangeTimeout.String()
		}
		log.LogWarnWithFields("auth", "Failed to track user", fields)
	}
}

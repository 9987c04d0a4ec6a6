package session

import "context"

// Identity is the caller-facing view of a verified session. It is derived
// from the token on every request and never stored.
type Identity struct {
	ID        string   `json:"id"`
	Login     string   `json:"login"`
	Name      string   `json:"name,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

type contextKey string

const identityKey contextKey = "session.identity"

// WithIdentity stores a verified identity in the request context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by WithIdentity
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

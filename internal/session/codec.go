package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/readmeforge/readme-front/internal/crypto"
)

const (
	// Issuer is stamped into every session token and required on verify.
	Issuer = "readme-front"

	// DefaultTTL is the session lifetime when none is configured.
	DefaultTTL = 7 * 24 * time.Hour

	// MaxClockSkew is how far a token's issue time may lie ahead of the
	// verifying instance's clock.
	MaxClockSkew = 10 * time.Second

	keyPurpose = "readme-front session token v1"
)

// ErrTokenInvalid wraps every verification failure. Callers treat it as
// "no session", never as a server error.
var ErrTokenInvalid = errors.New("invalid session token")

type claims struct {
	jwt.RegisteredClaims
	Login     string   `json:"login"`
	Name      string   `json:"name,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Scopes    []string `json:"scp,omitempty"`
}

// Codec mints and verifies HS256 session tokens. The signing key is derived
// from the injected secret, so any instance holding the same secret can verify
// tokens minted by another.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// CodecOption configures a Codec
type CodecOption func(*Codec)

// WithClock overrides the time source
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec from the operator secret. A non-positive ttl
// selects DefaultTTL.
func NewCodec(secret []byte, ttl time.Duration, opts ...CodecOption) (*Codec, error) {
	key, err := crypto.DeriveKey(secret, keyPurpose)
	if err != nil {
		return nil, fmt.Errorf("session signing key: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Codec{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime given to minted tokens
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint signs a token for id and returns it with its expiry. The expiry has
// second precision, matching the exp claim.
func (c *Codec) Mint(id Identity) (string, time.Time, error) {
	if strings.TrimSpace(id.ID) == "" || strings.TrimSpace(id.Login) == "" {
		return "", time.Time{}, fmt.Errorf("identity requires id and login")
	}

	now := c.now()
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
		Login:     id.Login,
		Name:      id.Name,
		AvatarURL: id.AvatarURL,
		Scopes:    id.Scopes,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, cl.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm, issuer and expiry, then returns the
// identity. Every failure wraps ErrTokenInvalid.
func (c *Codec) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	// Expiry stays exact; only the issue time tolerates skew between instances
	if cl.IssuedAt == nil || cl.IssuedAt.After(c.now().Add(MaxClockSkew)) {
		return Identity{}, fmt.Errorf("%w: token used before issued", ErrTokenInvalid)
	}

	if cl.Subject == "" || cl.Login == "" {
		return Identity{}, fmt.Errorf("%w: missing required claims", ErrTokenInvalid)
	}

	return Identity{
		ID:        cl.Subject,
		Login:     cl.Login,
		Name:      cl.Name,
		AvatarURL: cl.AvatarURL,
		Scopes:    cl.Scopes,
	}, nil
}

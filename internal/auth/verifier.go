package auth

import (
	"net/http"

	"github.com/readmeforge/readme-front/internal/cookie"
	"github.com/readmeforge/readme-front/internal/log"
	"github.com/readmeforge/readme-front/internal/session"
)

// Verifier resolves the session cookie on a request to an identity
type Verifier struct {
	codec *session.Codec
}

// NewVerifier creates a verifier backed by codec
func NewVerifier(codec *session.Codec) *Verifier {
	return &Verifier{codec: codec}
}

// CurrentUser returns the identity behind the request's session cookie.
// A missing or invalid cookie is not an error: it means "no session".
func (v *Verifier) CurrentUser(r *http.Request) (session.Identity, bool) {
	token, err := cookie.GetSession(r)
	if err != nil {
		return session.Identity{}, false
	}

	identity, err := v.codec.Verify(token)
	if err != nil {
		log.LogDebugWithFields("auth", "Ignoring invalid session cookie", map[string]any{
			"error":  err.Error(),
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
		})
		return session.Identity{}, false
	}
	return identity, true
}

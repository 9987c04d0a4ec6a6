package cookie

import (
	"errors"
	"net/http"
	"time"

	"github.com/readmeforge/readme-front/internal/log"
)

// SessionCookie is the name of the cookie carrying the session token
const SessionCookie = "readme_session"

// ErrNoSession is returned by GetSession when the request carries no session cookie
var ErrNoSession = errors.New("no session cookie")

// Manager builds the session cookie with a fixed set of attributes so that
// setting and clearing always agree on name, path and flags.
type Manager struct {
	secure bool
	now    func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the time source used to compute Max-Age
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a cookie manager. secure should be false only for local
// development over plain HTTP.
func NewManager(secure bool, opts ...Option) *Manager {
	m := &Manager{
		secure: secure,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) base(value string) *http.Cookie {
	// Lax keeps the cookie off cross-site subrequests and form posts while
	// still sending it on the top-level redirect back from GitHub.
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionCookie returns the cookie carrying token. Max-Age is the remaining
// lifetime of the token in whole seconds.
func (m *Manager) SessionCookie(token string, expiresAt time.Time) *http.Cookie {
	c := m.base(token)
	maxAge := int(expiresAt.Sub(m.now()) / time.Second)
	if maxAge <= 0 {
		// Already expired: emit a clearing cookie rather than a session cookie
		// with MaxAge 0, which net/http would drop entirely.
		return m.ClearCookie()
	}
	c.MaxAge = maxAge
	c.Expires = expiresAt.UTC()
	return c
}

// ClearCookie returns a cookie that removes the session cookie in the browser
func (m *Manager) ClearCookie() *http.Cookie {
	c := m.base("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	return c
}

// SetCookieHeader returns the Set-Cookie header value for token
func (m *Manager) SetCookieHeader(token string, expiresAt time.Time) string {
	return m.SessionCookie(token, expiresAt).String()
}

// ClearCookieHeader returns the Set-Cookie header value that clears the session
func (m *Manager) ClearCookieHeader() string {
	return m.ClearCookie().String()
}

// SetSession attaches the session cookie to the response
func (m *Manager) SetSession(w http.ResponseWriter, token string, expiresAt time.Time) {
	w.Header().Add("Set-Cookie", m.SetCookieHeader(token, expiresAt))

	log.LogTraceWithFields("cookie", "Session cookie set", map[string]any{
		"expires":  expiresAt.UTC().Format(time.RFC3339),
		"secure":   m.secure,
		"sameSite": "Lax",
	})
}

// ClearSession attaches the clearing cookie to the response
func (m *Manager) ClearSession(w http.ResponseWriter) {
	w.Header().Add("Set-Cookie", m.ClearCookieHeader())
	log.LogTraceWithFields("cookie", "Session cookie cleared", nil)
}

// GetSession retrieves the session cookie value from the request
func GetSession(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", ErrNoSession
	}
	if c.Value == "" {
		return "", ErrNoSession
	}
	return c.Value, nil
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/readmeforge/readme-front/internal/cookie"
	"github.com/readmeforge/readme-front/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentUser(t *testing.T) {
	codec := newTestCodec(t)
	verifier := NewVerifier(codec)

	want := session.Identity{ID: "583231", Login: "octocat", AvatarURL: "https://avatars.githubusercontent.com/u/583231"}
	token, _, err := codec.Mint(want)
	require.NoError(t, err)

	expiredCodec, err := session.NewCodec([]byte(strings.Repeat("k", 32)), time.Hour,
		session.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)
	expired, _, err := expiredCodec.Mint(want)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
		wantOK bool
	}{
		{name: "no cookie"},
		{name: "empty cookie", cookie: &http.Cookie{Name: cookie.SessionCookie, Value: ""}},
		{name: "garbage cookie", cookie: &http.Cookie{Name: cookie.SessionCookie, Value: "not-a-token"}},
		{name: "tampered cookie", cookie: &http.Cookie{Name: cookie.SessionCookie, Value: token[:len(token)-2] + "xx"}},
		{name: "expired cookie", cookie: &http.Cookie{Name: cookie.SessionCookie, Value: expired}},
		{name: "other cookie name", cookie: &http.Cookie{Name: "session", Value: token}},
		{name: "valid cookie", cookie: &http.Cookie{Name: cookie.SessionCookie, Value: token}, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			identity, ok := verifier.CurrentUser(req)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, want, identity)
			} else {
				assert.Equal(t, session.Identity{}, identity)
			}
		})
	}
}

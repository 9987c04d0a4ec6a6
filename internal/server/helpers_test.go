package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/readmeforge/readme-front/internal/auth"
	"github.com/readmeforge/readme-front/internal/cookie"
	"github.com/readmeforge/readme-front/internal/idp"
	"github.com/readmeforge/readme-front/internal/session"
	"github.com/readmeforge/readme-front/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testRedirectURI = "https://readme.example.com/auth/callback"

// newFakeGitHub serves the token exchange and user endpoints. Only
// "good-code" exchanges successfully.
func newFakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login/oauth/access_token":
			_ = r.ParseForm()
			if r.PostForm.Get("code") != "good-code" {
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":             "bad_verification_code",
					"error_description": "The code passed is incorrect or expired.",
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access_token": "gho_test",
				"token_type":   "bearer",
				"scope":        "read:user,repo",
			})
		case "/user":
			if r.Header.Get("Authorization") != "Bearer gho_test" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         583231,
				"login":      "octocat",
				"name":       "The Octocat",
				"email":      "octocat@github.com",
				"avatar_url": "https://avatars.githubusercontent.com/u/583231",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

type testEnv struct {
	handlers *AuthHandlers
	codec    *session.Codec
	verifier *auth.Verifier
	users    *storage.MemoryStorage
	github   *httptest.Server
}

func newTestEnv(t *testing.T, clientID string) *testEnv {
	t.Helper()
	github := newFakeGitHub(t)

	provider := idp.NewGitHubProvider(clientID, "test-secret", testRedirectURI, github.URL,
		idp.WithEndpoint(oauth2.Endpoint{
			AuthURL:   "https://github.com/login/oauth/authorize",
			TokenURL:  github.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}))

	codec, err := session.NewCodec([]byte(strings.Repeat("k", 32)), time.Hour)
	require.NoError(t, err)

	users := storage.NewMemoryStorage()
	verifier := auth.NewVerifier(codec)
	handlers := NewAuthHandlers(
		auth.NewInitiator(provider),
		auth.NewAuthenticator(provider, codec, auth.WithUserDirectory(users)),
		verifier,
		cookie.NewManager(true),
		"/login",
	)

	return &testEnv{
		handlers: handlers,
		codec:    codec,
		verifier: verifier,
		users:    users,
		github:   github,
	}
}

func (e *testEnv) mint(t *testing.T) string {
	t.Helper()
	token, _, err := e.codec.Mint(session.Identity{ID: "583231", Login: "octocat", Name: "The Octocat"})
	require.NoError(t, err)
	return token
}

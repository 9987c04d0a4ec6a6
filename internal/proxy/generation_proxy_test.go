package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/readmeforge/readme-front/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var octocat = session.Identity{ID: "583231", Login: "octocat"}

func newTestProxy(t *testing.T, backend *httptest.Server, timeout time.Duration) *GenerationProxy {
	t.Helper()
	p, err := NewGenerationProxy(Config{
		BaseURL: backend.URL,
		Prefix:  "/api",
		Timeout: timeout,
	})
	require.NoError(t, err)
	return p
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(session.WithIdentity(req.Context(), octocat))
}

func TestGenerationProxy_Forwards(t *testing.T) {
	var got *http.Request
	var gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Set-Cookie", "backend=1")
		w.Header().Set("X-Request-Id", "abc")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"readme":"# Hello"}`))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend, time.Minute)

	req := authedRequest(http.MethodPost, "/api/generate?repo=octocat/hello", strings.NewReader(`{"repo":"octocat/hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "readme_session=secret-token")
	req.Header.Set("Authorization", "Bearer should-not-leak")
	req.Header.Set("X-Readme-User-Login", "mallory")
	req.Header.Set("Connection", "keep-alive")

	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/generate", got.URL.Path)
	assert.Equal(t, "repo=octocat/hello", got.URL.RawQuery)
	assert.Equal(t, `{"repo":"octocat/hello"}`, gotBody)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Empty(t, got.Header.Get("Cookie"))
	assert.Empty(t, got.Header.Get("Authorization"))
	assert.Equal(t, "583231", got.Header.Get(HeaderUserID))
	assert.Equal(t, "octocat", got.Header.Get(HeaderUserLogin))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"readme":"# Hello"}`, w.Body.String())
	assert.Equal(t, "abc", w.Header().Get("X-Request-Id"))
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestGenerationProxy_DropsBackendCORSHeaders(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "false")
		w.Header().Set("Access-Control-Expose-Headers", "X-Internal")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend, time.Minute)

	// Headers the CORS middleware has already written
	w := httptest.NewRecorder()
	w.Header().Set("Access-Control-Allow-Origin", "https://readme.example.com")
	w.Header().Set("Access-Control-Allow-Credentials", "true")

	p.ServeHTTP(w, authedRequest(http.MethodGet, "/api/generate", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"https://readme.example.com"}, w.Header().Values("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"true"}, w.Header().Values("Access-Control-Allow-Credentials"))
	assert.Empty(t, w.Header().Values("Access-Control-Expose-Headers"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestGenerationProxy_PathAllowlist(t *testing.T) {
	hits := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	p := newTestProxy(t, backend, time.Minute)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/api/generate", wantStatus: http.StatusOK},
		{path: "/api/history", wantStatus: http.StatusOK},
		{path: "/api/history/42", wantStatus: http.StatusOK},
		{path: "/api/admin", wantStatus: http.StatusNotFound},
		{path: "/api/", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			p.ServeHTTP(w, authedRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
	assert.Equal(t, 3, hits)
}

func TestGenerationProxy_RequiresIdentity(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}))
	defer backend.Close()

	p := newTestProxy(t, backend, time.Minute)

	w := httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/generate", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerationProxy_BackendUnavailable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	p := newTestProxy(t, backend, time.Minute)
	backend.Close()

	w := httptest.NewRecorder()
	p.ServeHTTP(w, authedRequest(http.MethodPost, "/api/generate", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGenerationProxy_BackendTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer backend.Close()
	defer close(release)

	p := newTestProxy(t, backend, 50*time.Millisecond)

	w := httptest.NewRecorder()
	p.ServeHTTP(w, authedRequest(http.MethodPost, "/api/generate", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestNewGenerationProxy_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:3000", "/relative"} {
		_, err := NewGenerationProxy(Config{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

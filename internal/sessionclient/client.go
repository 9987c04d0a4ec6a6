package sessionclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/readmeforge/readme-front/internal/ioutil"
	"github.com/readmeforge/readme-front/internal/log"
	"github.com/readmeforge/readme-front/internal/session"
	"golang.org/x/sync/singleflight"
)

const (
	verifyPath = "/auth/verify"
	logoutPath = "/auth/logout"
	verifyKey  = "verify"

	// DefaultTimeout bounds each call to the server
	DefaultTimeout = 10 * time.Second
)

// ErrUnexpectedStatus is returned when the server answers outside the
// documented statuses
var ErrUnexpectedStatus = errors.New("unexpected status")

// State is the caller-visible authentication state
type State struct {
	IsAuthenticated bool
	IsLoading       bool
	User            *session.Identity
}

// RequireAuth reports whether a consumer gated on authentication must
// redirect away: verification finished and found no session.
func RequireAuth(s State) bool {
	return !s.IsLoading && !s.IsAuthenticated
}

// Session holds the client's view of its session and reconciles it against
// the server's verify endpoint. It is safe for concurrent use.
type Session struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	group      singleflight.Group

	mu          sync.Mutex
	state       State
	generation  uint64
	cancel      context.CancelFunc
	subscribers map[int]func(State)
	nextSubID   int
}

// Option configures a Session
type Option func(*Session)

// WithHTTPClient replaces the HTTP client. Its Jar carries the session cookie.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.httpClient = c
	}
}

// WithTimeout bounds each verify or logout call
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCookieJar sets the jar holding the session cookie
func WithCookieJar(jar http.CookieJar) Option {
	return func(s *Session) {
		s.httpClient.Jar = jar
	}
}

// New creates a Session against the front end at baseURL. The session
// starts out unauthenticated and not loading until Mount is called.
func New(baseURL string, opts ...Option) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	s := &Session{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:     DefaultTimeout,
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns a snapshot of the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Subscribe registers fn for every state change and returns a function that
// removes it. fn is called without internal locks held.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Mount marks the session as loading and starts one verification in the
// background. The result is applied unless Unmount, Logout or another
// Mount happens first.
func (s *Session) Mount(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = State{IsLoading: true}
	notify := s.transition()
	s.mu.Unlock()
	notify()

	go func() {
		defer cancel()
		identity, err := s.verify(ctx)
		if err != nil {
			log.LogDebugWithFields("sessionclient", "Verification failed", map[string]any{
				"error": err.Error(),
			})
		}
		s.apply(gen, identity)
	}()
}

// Unmount cancels the in-flight verification. Results arriving afterwards
// are discarded.
func (s *Session) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.group.Forget(verifyKey)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Refresh verifies the session synchronously and returns what the server
// reported. The result is applied unless a later call superseded it.
// Concurrent refreshes share one request.
func (s *Session) Refresh(ctx context.Context) (State, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	identity, err := s.verify(ctx)
	s.apply(gen, identity)

	st := State{IsAuthenticated: identity != nil}
	if identity != nil {
		u := *identity
		st.User = &u
	}
	return st, err
}

// Logout asks the server to clear the session cookie and resets local state
// whatever the outcome. The returned error is for logging only.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	s.group.Forget(verifyKey)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	err := s.postLogout(ctx)

	// A verification started while the logout request was pending still
	// carried the old cookie.
	s.mu.Lock()
	s.generation++
	s.group.Forget(verifyKey)
	s.state = State{}
	notify := s.transition()
	s.mu.Unlock()
	notify()

	if err != nil {
		log.LogWarnWithFields("sessionclient", "Logout request failed, local state cleared", map[string]any{
			"error": err.Error(),
		})
	}
	return err
}

// apply stores a verification result if gen is still current
func (s *Session) apply(gen uint64, identity *session.Identity) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		log.LogTraceWithFields("sessionclient", "Discarded stale verification result", map[string]any{
			"generation": gen,
		})
		return
	}
	s.state = State{
		IsAuthenticated: identity != nil,
		User:            identity,
	}
	notify := s.transition()
	s.mu.Unlock()
	notify()
}

// transition captures the state and subscribers; must hold s.mu
func (s *Session) transition() func() {
	st := s.snapshot()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(st)
		}
	}
}

type verifyResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *session.Identity `json:"user"`
	Error         string            `json:"error,omitempty"`
}

// verify calls the verify endpoint. A nil identity with a nil error means
// the server reported no session; any failure also yields no identity.
func (s *Session) verify(ctx context.Context) (*session.Identity, error) {
	ch := s.group.DoChan(verifyKey, func() (any, error) {
		// Detached from ctx so one caller's cancellation doesn't fail the others
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.fetchVerify(reqCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		identity, _ := res.Val.(*session.Identity)
		if identity == nil {
			return nil, nil
		}
		u := *identity
		return &u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) fetchVerify(ctx context.Context) (*session.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+verifyPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body verifyResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode verify response: %w", err)
		}
		if !body.Authenticated || body.User == nil {
			return nil, nil
		}
		return body.User, nil
	case http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w %d from %s: %s", ErrUnexpectedStatus, resp.StatusCode, verifyPath, ioutil.ErrorSummary(resp.Body))
	}
}

func (s *Session) postLogout(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+logoutPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d from %s: %s", ErrUnexpectedStatus, resp.StatusCode, logoutPath, ioutil.ErrorSummary(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

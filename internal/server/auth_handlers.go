package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"

	"github.com/readmeforge/readme-front/internal/auth"
	"github.com/readmeforge/readme-front/internal/cookie"
	jsonwriter "github.com/readmeforge/readme-front/internal/json"
	"github.com/readmeforge/readme-front/internal/log"
	"github.com/readmeforge/readme-front/internal/session"
	"github.com/readmeforge/readme-front/internal/urlutil"
)

// DefaultErrorPath is the page that explains a failed login
const DefaultErrorPath = "/login"

// AuthHandlers serves the /auth endpoints
type AuthHandlers struct {
	initiator     *auth.Initiator
	authenticator *auth.Authenticator
	verifier      *auth.Verifier
	cookies       *cookie.Manager
	errorPath     string
}

// verifyResponse is the body of /auth/verify and of every 401 from a guarded route
type verifyResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *session.Identity `json:"user"`
	Error         string            `json:"error,omitempty"`
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewAuthHandlers creates the /auth handlers. An empty errorPath selects DefaultErrorPath.
func NewAuthHandlers(
	initiator *auth.Initiator,
	authenticator *auth.Authenticator,
	verifier *auth.Verifier,
	cookies *cookie.Manager,
	errorPath string,
) *AuthHandlers {
	if errorPath == "" {
		errorPath = DefaultErrorPath
	}
	return &AuthHandlers{
		initiator:     initiator,
		authenticator: authenticator,
		verifier:      verifier,
		cookies:       cookies,
		errorPath:     errorPath,
	}
}

// LoginHandler redirects the browser to GitHub. ?returnTo= is carried through
// as the OAuth state.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	defer h.redirectOnPanic(w, r)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonwriter.WriteMethodNotAllowed(w, "GET")
		return
	}

	returnTo := r.URL.Query().Get("returnTo")

	authURL, err := h.initiator.BuildAuthorizationURL(returnTo)
	if err != nil {
		h.redirectError(w, r, err)
		return
	}

	log.LogDebugWithFields("auth", "Redirecting to identity provider", map[string]any{
		"returnTo": returnTo,
	})
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler completes the login GitHub redirects back to. It always
// answers with a redirect and only sets the cookie on success.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	defer h.redirectOnPanic(w, r)

	if r.Method != http.MethodGet {
		jsonwriter.WriteMethodNotAllowed(w, "GET")
		return
	}

	q := r.URL.Query()
	result, err := h.authenticator.Complete(r.Context(), auth.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		h.redirectError(w, r, err)
		return
	}

	h.cookies.SetSession(w, result.Token, result.ExpiresAt)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, result.ReturnTo, http.StatusFound)
}

// LogoutHandler clears the session cookie. Tokens are stateless, so logout
// only removes the cookie from this browser.
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logPanic("logout", r, rec)
			_ = jsonwriter.WriteResponse(w, http.StatusInternalServerError, logoutResponse{
				Error: "logout failed",
			})
		}
	}()

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		jsonwriter.WriteMethodNotAllowed(w, "GET, POST")
		return
	}

	if identity, ok := h.verifier.CurrentUser(r); ok {
		log.LogInfoWithFields("auth", "User logged out", map[string]any{
			"login": identity.Login,
		})
	}

	h.cookies.ClearSession(w)
	_ = jsonwriter.Write(w, logoutResponse{Success: true})
}

// VerifyHandler reports the identity behind the session cookie
func (h *AuthHandlers) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logPanic("verify", r, rec)
			_ = jsonwriter.WriteResponse(w, http.StatusInternalServerError, verifyResponse{
				Error: "verification failed",
			})
		}
	}()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonwriter.WriteMethodNotAllowed(w, "GET")
		return
	}

	identity, ok := h.verifier.CurrentUser(r)
	if !ok {
		_ = jsonwriter.WriteResponse(w, http.StatusUnauthorized, verifyResponse{})
		return
	}
	_ = jsonwriter.Write(w, verifyResponse{Authenticated: true, User: &identity})
}

// redirectError sends the browser to the error page with ?error=<code>
func (h *AuthHandlers) redirectError(w http.ResponseWriter, r *http.Request, err error) {
	code := auth.ErrorCode(err)

	fields := map[string]any{
		"code":  code,
		"error": err.Error(),
		"path":  r.URL.Path,
	}
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		log.LogWarnWithFields("auth", "OAuth not configured", fields)
	case errors.Is(err, auth.ErrProvider):
		log.LogErrorWithFields("auth", "Identity provider rejected login", fields)
	case errors.Is(err, auth.ErrAccessDenied), errors.Is(err, auth.ErrInvalidRequest):
		log.LogInfoWithFields("auth", "Login not completed", fields)
	default:
		log.LogErrorWithFields("auth", "Login failed", fields)
	}

	target, qerr := urlutil.WithQuery(h.errorPath, map[string]string{"error": code})
	if qerr != nil {
		target = h.errorPath + "?error=" + url.QueryEscape(code)
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}

// redirectOnPanic turns a panic in an OAuth endpoint into the server_error
// redirect so the browser never sees a raw failure.
func (h *AuthHandlers) redirectOnPanic(w http.ResponseWriter, r *http.Request) {
	if rec := recover(); rec != nil {
		logPanic("oauth", r, rec)
		w.Header().Del("Set-Cookie")
		h.redirectError(w, r, fmt.Errorf("panic: %v", rec))
	}
}

func logPanic(handler string, r *http.Request, rec any) {
	log.LogErrorWithFields("auth", "Recovered from panic", map[string]any{
		"handler": handler,
		"panic":   rec,
		"path":    r.URL.Path,
		"stack":   string(debug.Stack()),
	})
}

package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsonwriter "github.com/readmeforge/readme-front/internal/json"
	"github.com/readmeforge/readme-front/internal/log"
	"github.com/readmeforge/readme-front/internal/session"
	"github.com/readmeforge/readme-front/internal/urlutil"
)

// Headers carrying the verified caller to the backend
const (
	HeaderUserID    = "X-Readme-User-Id"
	HeaderUserLogin = "X-Readme-User-Login"
)

// DefaultAllowedPaths are the backend routes the front end calls
var DefaultAllowedPaths = []string{"/generate", "/history", "/history/**"}

// Config configures the generation pass-through
type Config struct {
	BaseURL      string
	Prefix       string // stripped from the incoming path, e.g. "/api"
	Timeout      time.Duration
	AllowedPaths []string
}

// GenerationProxy forwards authenticated /api requests to the generation
// backend. It must be mounted behind the session guard: the caller's identity
// is read from the request context and passed on as headers, while the
// session cookie itself never leaves this process.
type GenerationProxy struct {
	baseURL    string
	prefix     string
	matcher    *PathMatcher
	httpClient *http.Client
}

// NewGenerationProxy creates the pass-through
func NewGenerationProxy(cfg Config) (*GenerationProxy, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", cfg.BaseURL)
	}
	allowed := cfg.AllowedPaths
	if len(allowed) == 0 {
		allowed = DefaultAllowedPaths
	}

	return &GenerationProxy{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		prefix:  strings.TrimSuffix(cfg.Prefix, "/"),
		matcher: NewPathMatcher(allowed),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// Don't follow redirects automatically
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// ServeHTTP handles proxy requests
// URL format: {prefix}/{path}
// Example: /api/generate -> {backend}/generate
func (p *GenerationProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	identity, ok := session.FromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetPath := strings.TrimPrefix(r.URL.Path, p.prefix)
	if !strings.HasPrefix(targetPath, "/") {
		targetPath = "/" + targetPath
	}
	if !p.matcher.IsAllowed(targetPath) {
		log.LogDebugWithFields("proxy", "Backend path not allowed", map[string]any{
			"path": targetPath,
			"user": identity.Login,
		})
		jsonwriter.WriteNotFound(w, "Unknown API route")
		return
	}

	status, err := p.forward(r.Context(), w, r, targetPath, identity)
	if err != nil {
		log.LogErrorWithFields("proxy", "Proxy request failed", map[string]any{
			"error":  err.Error(),
			"path":   targetPath,
			"method": r.Method,
			"user":   identity.Login,
		})
		return
	}

	log.LogInfoWithFields("proxy", "Request proxied", map[string]any{
		"user":        identity.Login,
		"method":      r.Method,
		"path":        targetPath,
		"status":      status,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// forward proxies the request to the backend. Errors before the response
// starts are written to w.
func (p *GenerationProxy) forward(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	targetPath string,
	identity session.Identity,
) (int, error) {
	upstreamURL, err := urlutil.JoinPath(p.baseURL, targetPath)
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "Failed to build upstream request")
		return 0, fmt.Errorf("failed to build upstream URL: %w", err)
	}
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL, r.Body)
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "Failed to create upstream request")
		return 0, fmt.Errorf("failed to create upstream request: %w", err)
	}
	upstreamReq.ContentLength = r.ContentLength

	copyRequestHeaders(upstreamReq.Header, r.Header)
	upstreamReq.Header.Set(HeaderUserID, identity.ID)
	upstreamReq.Header.Set(HeaderUserLogin, identity.Login)

	upstreamResp, err := p.httpClient.Do(upstreamReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			jsonwriter.WriteGatewayTimeout(w, "Generation backend timed out")
		} else {
			jsonwriter.WriteBadGateway(w, "Failed to reach generation backend")
		}
		return 0, fmt.Errorf("upstream request failed: %w", err)
	}
	defer upstreamResp.Body.Close()

	copyResponseHeaders(w.Header(), upstreamResp.Header)
	w.WriteHeader(upstreamResp.StatusCode)

	if _, err := io.Copy(w, upstreamResp.Body); err != nil {
		return upstreamResp.StatusCode, fmt.Errorf("failed to copy response body: %w", err)
	}
	return upstreamResp.StatusCode, nil
}

var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// copyRequestHeaders copies headers from src to dst, excluding credentials,
// hop-by-hop headers and any caller-supplied identity headers
func copyRequestHeaders(dst, src http.Header) {
	for key, values := range src {
		lower := strings.ToLower(key)
		if hopByHopHeaders[lower] || lower == "cookie" || lower == "authorization" || strings.HasPrefix(lower, "x-readme-") {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// copyResponseHeaders copies headers from src to dst. The backend may not
// set cookies on the front end's origin, and CORS headers belong to the
// front end's own middleware.
func copyResponseHeaders(dst, src http.Header) {
	for key, values := range src {
		lower := strings.ToLower(key)
		if hopByHopHeaders[lower] || lower == "set-cookie" || strings.HasPrefix(lower, "access-control-") {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured matches any ConfigurationError
	ErrNotConfigured = errors.New("oauth not configured")

	// ErrProvider matches any ProviderError
	ErrProvider = errors.New("identity provider rejected the login")

	// ErrAccessDenied is returned when the user declined the authorization at GitHub
	ErrAccessDenied = errors.New("access denied by user")

	// ErrInvalidRequest is returned when the callback is missing its code
	ErrInvalidRequest = errors.New("invalid callback request")
)

// Error codes carried in the error page redirect as ?error=<code>
const (
	ErrorCodeNotConfigured  = "oauth_not_configured"
	ErrorCodeAuthFailed     = "auth_failed"
	ErrorCodeAccessDenied   = "access_denied"
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeServerError    = "server_error"
)

// ConfigurationError reports OAuth settings that are missing
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return ErrNotConfigured.Error()
	}
	return fmt.Sprintf("%s: missing %s", ErrNotConfigured, strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured
}

// Stages at which the provider can reject a login
const (
	StageAuthorize = "authorize"
	StageExchange  = "exchange"
	StageIdentity  = "identity"
)

// ProviderError wraps a failure returned by the identity provider.
// These are terminal for the login attempt and never retried.
type ProviderError struct {
	Stage string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// ErrorCode maps a login error to the code shown on the error page
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return ErrorCodeNotConfigured
	case errors.Is(err, ErrAccessDenied):
		return ErrorCodeAccessDenied
	case errors.Is(err, ErrInvalidRequest):
		return ErrorCodeInvalidRequest
	case errors.Is(err, ErrProvider):
		return ErrorCodeAuthFailed
	default:
		return ErrorCodeServerError
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/readmeforge/readme-front/internal/crypto"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a parsed configuration. Missing GitHub credentials are a
// warning only: the login endpoint reports them to the user instead.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	if cfg.Addr == "" {
		result.addError("READMEFRONT_ADDR", "listen address is required")
	}

	switch strings.ToLower(cfg.Environment) {
	case "production", "prod", "staging", "development", "dev":
	default:
		result.addWarning("READMEFRONT_ENV", "unknown environment %q, treating as production", cfg.Environment)
	}
	if cfg.IsDev() {
		result.addWarning("READMEFRONT_ENV", "development mode: session cookies are not marked Secure")
	}

	if len(cfg.Session.Secret) < crypto.MinSecretLength {
		result.addError("READMEFRONT_SESSION_SECRET",
			"must be at least %d characters (got %d). Generate with: readme-front -generate-secret",
			crypto.MinSecretLength, len(cfg.Session.Secret))
	}
	if cfg.Session.TTL <= 0 {
		result.addError("READMEFRONT_SESSION_TTL", "must be positive")
	}

	if !strings.HasPrefix(cfg.ErrorPath, "/") || strings.HasPrefix(cfg.ErrorPath, "//") {
		result.addError("READMEFRONT_ERROR_PATH", "must be a site-relative path starting with a single /")
	}

	if cfg.SiteURL != "" {
		if err := validateAbsoluteURL(cfg.SiteURL); err != nil {
			result.addError("READMEFRONT_SITE_URL", "%v", err)
		}
	}
	if cfg.BackendURL != "" {
		if err := validateAbsoluteURL(cfg.BackendURL); err != nil {
			result.addError("READMEFRONT_BACKEND_URL", "%v", err)
		}
		if cfg.BackendTimeout <= 0 {
			result.addError("READMEFRONT_BACKEND_TIMEOUT", "must be positive")
		}
	}

	if cfg.GitHub.APIURL == "" {
		result.addError("GITHUB_API_URL", "must not be empty")
	} else if err := validateAbsoluteURL(cfg.GitHub.APIURL); err != nil {
		result.addError("GITHUB_API_URL", "%v", err)
	}

	if cfg.GitHub.OAuthURL != "" {
		if err := validateAbsoluteURL(cfg.GitHub.OAuthURL); err != nil {
			result.addError("GITHUB_OAUTH_URL", "%v", err)
		}
	}

	if cfg.GitHub.ExchangeTimeout <= 0 {
		result.addError("GITHUB_EXCHANGE_TIMEOUT", "must be positive")
	}

	if !cfg.OAuthConfigured() {
		var missing []string
		if cfg.GitHub.ClientID == "" {
			missing = append(missing, "GITHUB_CLIENT_ID")
		}
		if cfg.GitHub.ClientSecret == "" {
			missing = append(missing, "GITHUB_CLIENT_SECRET")
		}
		if cfg.RedirectURI() == "" {
			missing = append(missing, "GITHUB_REDIRECT_URI or READMEFRONT_SITE_URL")
		}
		result.addWarning("GITHUB", "GitHub login disabled, missing %s", strings.Join(missing, ", "))
	}

	switch cfg.Storage.Kind {
	case StorageMemory:
	case StorageFirestore:
		if cfg.Storage.GCPProject == "" {
			result.addError("READMEFRONT_GCP_PROJECT", "required when using firestore storage")
		}
		if cfg.Storage.Collection == "" {
			result.addError("READMEFRONT_FIRESTORE_COLLECTION", "required when using firestore storage")
		}
	default:
		result.addError("READMEFRONT_STORAGE", "invalid storage %q (memory or firestore)", cfg.Storage.Kind)
	}

	return result
}

// ValidateConfig validates the configuration and returns the first error
func ValidateConfig(cfg *Config) error {
	result := Validate(cfg)
	if result.IsValid() {
		return nil
	}
	errs := make([]error, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Errorf("%s: %s", e.Path, e.Message))
	}
	return errors.Join(errs...)
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host, got %q", raw)
	}
	return nil
}

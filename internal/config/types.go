package config

import (
	"encoding/json"
	"strings"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the user directory backend
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageFirestore StorageKind = "firestore"
)

// CallbackPath is where GitHub sends the browser back after login
const CallbackPath = "/auth/callback"

// GitHubConfig holds the OAuth app registration
type GitHubConfig struct {
	ClientID     string `env:"GITHUB_CLIENT_ID"`
	ClientSecret Secret `env:"GITHUB_CLIENT_SECRET"`
	RedirectURI  string `env:"GITHUB_REDIRECT_URI"`
	APIURL       string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	// OAuthURL hosts /login/oauth/authorize and /login/oauth/access_token
	OAuthURL string `env:"GITHUB_OAUTH_URL" envDefault:"https://github.com"`
	// ExchangeTimeout bounds the code exchange and profile fetch together
	ExchangeTimeout time.Duration `env:"GITHUB_EXCHANGE_TIMEOUT" envDefault:"30s"`
}

// SessionConfig controls session token issuance
type SessionConfig struct {
	Secret Secret        `env:"READMEFRONT_SESSION_SECRET"`
	TTL    time.Duration `env:"READMEFRONT_SESSION_TTL" envDefault:"168h"`
}

// StorageConfig selects and configures the user directory
type StorageConfig struct {
	Kind            StorageKind `env:"READMEFRONT_STORAGE" envDefault:"memory"`
	GCPProject      string      `env:"READMEFRONT_GCP_PROJECT"`
	Database        string      `env:"READMEFRONT_FIRESTORE_DATABASE" envDefault:"(default)"`
	Collection      string      `env:"READMEFRONT_FIRESTORE_COLLECTION" envDefault:"readme_front_users"`
	CredentialsFile string      `env:"READMEFRONT_GCP_CREDENTIALS_FILE"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT"`
}

// Config is the complete process configuration, read from the environment
type Config struct {
	Addr           string        `env:"READMEFRONT_ADDR" envDefault:":8080"`
	Environment    string        `env:"READMEFRONT_ENV" envDefault:"production"`
	SiteURL        string        `env:"READMEFRONT_SITE_URL"`
	ErrorPath      string        `env:"READMEFRONT_ERROR_PATH" envDefault:"/login"`
	AllowedOrigins []string      `env:"READMEFRONT_ALLOWED_ORIGINS" envSeparator:","`
	BackendURL     string        `env:"READMEFRONT_BACKEND_URL"`
	BackendTimeout time.Duration `env:"READMEFRONT_BACKEND_TIMEOUT" envDefault:"2m"`

	GitHub  GitHubConfig
	Session SessionConfig
	Storage StorageConfig
	Log     LogConfig
}

// IsDev reports whether we're running in development mode
// where cookies may travel over plain HTTP
func (c Config) IsDev() bool {
	env := strings.ToLower(c.Environment)
	return env == "development" || env == "dev"
}

// RedirectURI returns the configured GitHub redirect URI, falling back to
// the site URL joined with the callback path.
func (c Config) RedirectURI() string {
	if c.GitHub.RedirectURI != "" {
		return c.GitHub.RedirectURI
	}
	if c.SiteURL == "" {
		return ""
	}
	redirect, err := joinPath(c.SiteURL, CallbackPath)
	if err != nil {
		return ""
	}
	return redirect
}

// OAuthConfigured reports whether every credential needed for GitHub login is present
func (c Config) OAuthConfigured() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != "" && c.RedirectURI() != ""
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validSecret = strings.Repeat("s", 32)

func setBaseEnv(t *testing.T) {
	t.Helper()
	// Run from an empty directory so a developer's .env never leaks in
	t.Chdir(t.TempDir())
	t.Setenv("READMEFRONT_SESSION_SECRET", validSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "/login", cfg.ErrorPath)
	assert.Equal(t, 168*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "https://github.com", cfg.GitHub.OAuthURL)
	assert.Equal(t, 30*time.Second, cfg.GitHub.ExchangeTimeout)
	assert.Equal(t, StorageMemory, cfg.Storage.Kind)
	assert.Equal(t, "(default)", cfg.Storage.Database)
	assert.Equal(t, "readme_front_users", cfg.Storage.Collection)
	assert.False(t, cfg.OAuthConfigured())
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("READMEFRONT_ADDR", ":9000")
	t.Setenv("READMEFRONT_ENV", "development")
	t.Setenv("READMEFRONT_SITE_URL", "http://localhost:5173")
	t.Setenv("READMEFRONT_SESSION_TTL", "2h")
	t.Setenv("READMEFRONT_ALLOWED_ORIGINS", "http://localhost:5173, ,https://readme.example.com")
	t.Setenv("GITHUB_CLIENT_ID", "Iv1.abc")
	t.Setenv("GITHUB_CLIENT_SECRET", "shh")
	t.Setenv("GITHUB_EXCHANGE_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.GitHub.ExchangeTimeout)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"http://localhost:5173", "https://readme.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.OAuthConfigured())
	assert.Equal(t, "http://localhost:5173/auth/callback", cfg.RedirectURI())
}

func TestLoad_EnvFile(t *testing.T) {
	setBaseEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "readme.env")
	content := fmt.Sprintf("GITHUB_CLIENT_ID=from-file\nREADMEFRONT_ADDR=:7000\nREADMEFRONT_SESSION_SECRET=%s\n", strings.Repeat("f", 40))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("READMEFRONT_ADDR", ":6000")
	t.Cleanup(func() { os.Unsetenv("GITHUB_CLIENT_ID") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.GitHub.ClientID)
	// The process environment wins over the file
	assert.Equal(t, ":6000", cfg.Addr)
	assert.Equal(t, Secret(validSecret), cfg.Session.Secret)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	setBaseEnv(t)

	t.Run("default file may be absent", func(t *testing.T) {
		_, err := Load(DefaultEnvFile)
		assert.NoError(t, err)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
		assert.Error(t, err)
	})
}

func TestLoad_SessionSecretRequired(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("missing", func(t *testing.T) {
		t.Setenv("READMEFRONT_SESSION_SECRET", "")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "READMEFRONT_SESSION_SECRET")
	})

	t.Run("too short", func(t *testing.T) {
		t.Setenv("READMEFRONT_SESSION_SECRET", "short")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})
}

func TestParse_SkipsValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("READMEFRONT_SESSION_SECRET", "short")

	cfg, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Secret("short"), cfg.Session.Secret)
	assert.False(t, Validate(&cfg).IsValid())
}

func TestLoad_InvalidDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("READMEFRONT_SESSION_TTL", "a week")

	_, err := Load("")
	assert.Error(t, err)
}

func TestRedirectURI(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "explicit wins",
			cfg: Config{
				SiteURL: "https://readme.example.com",
				GitHub:  GitHubConfig{RedirectURI: "https://auth.example.com/cb"},
			},
			want: "https://auth.example.com/cb",
		},
		{
			name: "derived from site url",
			cfg:  Config{SiteURL: "https://readme.example.com/"},
			want: "https://readme.example.com/auth/callback",
		},
		{
			name: "none",
			cfg:  Config{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.RedirectURI())
		})
	}
}

func TestSecret_Redacts(t *testing.T) {
	s := Secret("super-secret-value")
	assert.Equal(t, "***", s.String())
	assert.Equal(t, "***", fmt.Sprintf("%v", s))

	data, err := json.Marshal(struct {
		Secret Secret `json:"secret"`
	}{Secret: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"secret":"***"}`, string(data))

	assert.Equal(t, "", Secret("").String())
}

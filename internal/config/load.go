package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/readmeforge/readme-front/internal/log"
	"github.com/readmeforge/readme-front/internal/urlutil"
)

// DefaultEnvFile is read when present; its absence is not an error
const DefaultEnvFile = ".env"

// Load reads an optional dotenv file, then parses the environment.
// Variables already set in the process environment win over the file.
// An explicitly named envFile must exist; the default one may be absent.
func Load(envFile string) (Config, error) {
	cfg, err := Parse(envFile)
	if err != nil {
		return Config{}, err
	}

	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Parse is Load without validation
func Parse(envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedOrigins = trimCSV(cfg.AllowedOrigins)
	return cfg, nil
}

func loadEnvFile(path string) error {
	required := path != "" && path != DefaultEnvFile
	if path == "" {
		path = DefaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		log.LogDebugWithFields("config", "Loaded env file", map[string]any{
			"path": path,
		})
		return nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("reading env file %s: %w", path, err)
}

// trimCSV removes empty entries from a string slice.
func trimCSV(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func joinPath(base string, paths ...string) (string, error) {
	return urlutil.JoinPath(base, paths...)
}

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// secretBytes of entropy encode to 64 URL-safe characters
const secretBytes = 48

// GenerateSecret returns a random session signing secret, URL-safe base64
// without padding so it can be pasted into an env file unquoted.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(b)
	if len(secret) < MinSecretLength {
		return "", fmt.Errorf("%w: generated %d characters", ErrSecretTooShort, len(secret))
	}
	return secret, nil
}

package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest operator secret accepted for key derivation.
const MinSecretLength = 32

// ErrSecretTooShort is returned when the operator secret is below MinSecretLength.
var ErrSecretTooShort = errors.New("secret too short")

// DeriveKey expands an operator-supplied secret into a 32-byte key bound to
// purpose. The output is deterministic, so every instance configured with the
// same secret derives the same key.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrSecretTooShort, MinSecretLength, len(secret))
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 64)
	assert.NotContains(t, secret, "=")
	assert.False(t, strings.ContainsAny(secret, "+/"), "must be URL-safe")

	other, err := GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)

	// Accepted by the key derivation it is meant for
	_, err = DeriveKey([]byte(secret), "session")
	assert.NoError(t, err)
}

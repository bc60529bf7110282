package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func legacyHash(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", iterations, salt, hex.EncodeToString(key))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$2a$12$"))
	assert.NotContains(t, hash, "Passw0rd!")

	ok, rehash := VerifyPassword(hash, "Passw0rd!")
	assert.True(t, ok)
	assert.False(t, rehash)

	ok, _ = VerifyPassword(hash, "wrong")
	assert.False(t, ok)
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Legacy(t *testing.T) {
	hash := legacyHash("Passw0rd!", "Zk3oQ1aB", 1000)

	ok, rehash := VerifyPassword(hash, "Passw0rd!")
	assert.True(t, ok)
	assert.True(t, rehash)

	ok, rehash = VerifyPassword(hash, "passw0rd!")
	assert.False(t, ok)
	assert.True(t, rehash)
}

func TestVerifyPassword_LegacyDefaultIterations(t *testing.T) {
	key := pbkdf2.Key([]byte("pw"), []byte("salt"), legacyPBKDF2Iterations, sha256.Size, sha256.New)
	hash := "pbkdf2:sha256$salt$" + hex.EncodeToString(key)

	ok, _ := VerifyPassword(hash, "pw")
	assert.True(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, hash := range []string{
		"",
		"pbkdf2:sha256:1000$onlysalt",
		"pbkdf2:sha1:1000$salt$00",
		"pbkdf2:sha256:zero$salt$00",
		"pbkdf2:sha256:1000$salt$not-hex",
		"plaintext",
	} {
		ok, _ := VerifyPassword(hash, "pw")
		assert.False(t, ok, hash)
	}
}

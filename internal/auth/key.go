package auth

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey expands secret into a 32-byte key bound to purpose, so one
// configured secret can sign unrelated cookies without the signatures
// being interchangeable.
func DeriveKey(secret, purpose string) []byte {
	key := make([]byte, 32)
	// Reading 32 bytes from HKDF-SHA256 cannot fail.
	_, _ = io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose)), key)
	return key
}

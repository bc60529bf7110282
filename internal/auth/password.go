package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// BcryptCost is the work factor for new password hashes.
const BcryptCost = 12

// legacyPBKDF2Iterations applies to "pbkdf2:sha256" hashes that carry no
// explicit iteration count.
const legacyPBKDF2Iterations = 260000

// dummyHash is compared against when a login names an unknown user so
// both paths cost one bcrypt verification.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("isokoinfo-dummy-password"), BcryptCost)

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks password against hash. It accepts bcrypt hashes and
// salted "pbkdf2:sha256[:iterations]$salt$hex" hashes created by the
// previous deployment; needsRehash is true for the latter.
func VerifyPassword(hash, password string) (ok, needsRehash bool) {
	if strings.HasPrefix(hash, "pbkdf2:") {
		return verifyPBKDF2(hash, password), true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, false
}

// BurnVerification spends the same time as a real verification.
func BurnVerification(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func verifyPBKDF2(encoded, password string) bool {
	method, salt, digest, err := splitPBKDF2(encoded)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), method, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// splitPBKDF2 parses "pbkdf2:sha256:600000$salt$hex".
func splitPBKDF2(encoded string) (iterations int, salt, digest string, err error) {
	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 {
		return 0, "", "", errors.New("malformed pbkdf2 hash")
	}

	params := strings.Split(parts[0], ":")
	if len(params) < 2 || params[0] != "pbkdf2" || params[1] != "sha256" {
		return 0, "", "", fmt.Errorf("unsupported hash method %q", parts[0])
	}

	iterations = legacyPBKDF2Iterations
	if len(params) == 3 {
		iterations, err = strconv.Atoi(params[2])
		if err != nil || iterations <= 0 {
			return 0, "", "", fmt.Errorf("bad iteration count %q", params[2])
		}
	}
	return iterations, parts[1], parts[2], nil
}

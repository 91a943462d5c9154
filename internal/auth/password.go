// Package auth provides password hashing, session token generation, and the
// login/logout/change-password flows built on them.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. Changing these invalidates stored hashes, since the
// parameters are not embedded in the encoded form.
const (
	pbkdf2Iterations = 100000
	pbkdf2KeyLen     = sha256.Size
	saltBytes        = 16
)

// HashPassword derives a salted PBKDF2-SHA256 hash encoded as
// "<saltHex>:<digestHex>". The hex-encoded salt string itself is the KDF
// salt input, which keeps the encoding round-trippable from the stored form
// alone.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	digest := pbkdf2.Key([]byte(password), []byte(saltHex), pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return saltHex + ":" + hex.EncodeToString(digest), nil
}

// VerifyPassword reports whether password matches an encoded hash. A
// malformed stored hash verifies as false, never as an error, so a corrupt
// row degrades to a failed login instead of a 500.
func VerifyPassword(password, stored string) bool {
	saltHex, digestHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(digestHex)
	if err != nil || len(want) != pbkdf2KeyLen {
		return false
	}

	got := pbkdf2.Key([]byte(password), []byte(saltHex), pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

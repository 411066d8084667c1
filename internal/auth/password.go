package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashScheme     = "pbkdf2-sha256"
	hashIterations = 120000
	hashSaltLen    = 16
	hashKeyLen     = 32
)

// Hasher derives and verifies salted password hashes using
// PBKDF2-HMAC-SHA256. The zero value is ready to use with production
// parameters; tests may lower iterations.
type Hasher struct {
	// Iterations overrides the default KDF cost when positive.
	Iterations int
}

func (h Hasher) iterations() int {
	if h.Iterations > 0 {
		return h.Iterations
	}
	return hashIterations
}

// Hash derives an opaque encoded hash from the password using a fresh random
// salt. Two calls with the same password yield different outputs.
func (h Hasher) Hash(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	iter := h.iterations()
	key := pbkdf2.Key([]byte(password), salt, iter, hashKeyLen, sha256.New)
	encoded := fmt.Sprintf("%s$%d$%s$%s",
		hashScheme,
		iter,
		base64.RawURLEncoding.EncodeToString(salt),
		base64.RawURLEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify re-derives the key with the parameters embedded in the stored value
// and compares in constant time. Malformed stored values verify as false,
// never as an error.
func (h Hasher) Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashScheme {
		return false
	}
	iter, err := strconv.Atoi(parts[1])
	if err != nil || iter <= 0 {
		return false
	}
	salt, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, iter, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix is the prefix of generated API keys
	KeyPrefix = "inferd_sk_" // #nosec G101 //nolint:gosec // prefix pattern, not a credential

	// KeyLength is the length of the random part of keys (in bytes, hex encoded)
	KeyLength = 24

	// MaxKeyBytes is the longest key bcrypt will hash
	MaxKeyBytes = 72

	// bcryptCost is the cost factor for bcrypt hashing
	bcryptCost = 12
)

// GenerateKey returns a new random API key.
// Format: inferd_sk_<48 hex chars>
func GenerateKey() (string, error) {
	bytes := make([]byte, KeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(bytes), nil
}

// HashKey creates a bcrypt hash of a key, suitable for auth.apiKeyHash
func HashKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("hash key: empty key")
	}
	if len(key) > MaxKeyBytes {
		return "", fmt.Errorf("hash key: key is %d bytes, bcrypt accepts at most %d", len(key), MaxKeyBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// VerifyHash checks if a key matches a bcrypt hash
func VerifyHash(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// IsBcryptHash reports whether s looks like a bcrypt hash
func IsBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// MaskToken returns a masked version of a secret for display and logs.
// Example: infe****...****a1b2
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "****...****" + token[len(token)-4:]
}

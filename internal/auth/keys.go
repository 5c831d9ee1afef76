package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateAPIKey creates a new random API key with the sk_ prefix. The full
// key is shown once at creation time; only its hash is stored.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "sk_" + hex.EncodeToString(bytes), nil
}

// HashAPIKey returns the hex SHA-256 digest of a key for storage and lookup.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// KeyPrefix returns the display prefix of a key, enough to identify it in
// lists without revealing the secret.
func KeyPrefix(key string) string {
	if len(key) < 12 {
		return key
	}
	return key[:12]
}

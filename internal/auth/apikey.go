package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey returns the bcrypt hash of an API key, for storing in config.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey reports whether the presented key matches the stored hash.
func VerifyAPIKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

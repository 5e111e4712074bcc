package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewSecureToken generates a 64-character hex token from 32 random bytes.
// Used for email verification and password reset tokens.
func NewSecureToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewUnusablePassword generates a random placeholder for OAuth-only accounts.
// The plaintext is discarded immediately after hashing, so the local
// credential can never verify.
func NewUnusablePassword() (string, error) {
	return NewSecureToken()
}

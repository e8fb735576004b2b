package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// InviteTokenBytes yields a 48-char hex invite token.
	InviteTokenBytes = 24
	// ResetTokenBytes yields a 48-char hex reset token.
	ResetTokenBytes = 24
)

// IssueToken returns n random bytes hex-encoded. The plaintext is handed to the caller once and never stored.
func IssueToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Fingerprint is the sha256 hex digest of a token; it is the only persisted form and the lookup key.
func Fingerprint(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

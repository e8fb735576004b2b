package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenLengthAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		tok, err := IssueToken(InviteTokenBytes)
		require.NoError(t, err)
		assert.Len(t, tok, InviteTokenBytes*2)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token issued")
		seen[tok] = struct{}{}
	}
}

func TestIssueTokenRejectsNonPositive(t *testing.T) {
	_, err := IssueToken(0)
	assert.Error(t, err)
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("abc")
	assert.Equal(t, a, Fingerprint("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", a)
	assert.NotEqual(t, a, Fingerprint("abd"))
	assert.NotContains(t, a, "abc")
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)
	assert.True(t, CheckPassword("Secret123", hash))
	assert.False(t, CheckPassword("secret123", hash))
}

package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	t.Run("accepts the right password", func(t *testing.T) {
		require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	})

	t.Run("rejects the wrong password", func(t *testing.T) {
		err := VerifyPassword("Tr0ub4dor&3", hash)
		require.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("salts are unique per hash", func(t *testing.T) {
		other, err := HashPassword("correct horse battery staple")
		require.NoError(t, err)
		require.NotEqual(t, hash, other)
	})
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
	} {
		err := VerifyPassword("anything", encoded)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrPasswordMismatch)
	}
}

func TestOpaqueTokens(t *testing.T) {
	t.Parallel()

	tok, err := NewOpaqueToken(RefreshTokenBytes)
	require.NoError(t, err)
	require.Len(t, tok, 43) // 32 bytes base64url, no padding

	other, err := NewOpaqueToken(RefreshTokenBytes)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = NewOpaqueToken(0)
	require.Error(t, err)

	t.Run("fingerprint is deterministic and one-way", func(t *testing.T) {
		require.Equal(t, Fingerprint(tok), Fingerprint(tok))
		require.NotEqual(t, Fingerprint(tok), Fingerprint(other))
		require.NotContains(t, Fingerprint(tok), tok)
	})
}

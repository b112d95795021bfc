package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testIssuer = "wayfarer-test"

func newTestCodec(t *testing.T) *HS256 {
	t.Helper()
	codec, err := NewHS256([]byte("0123456789abcdef0123456789abcdef"), testIssuer)
	require.NoError(t, err)
	return codec
}

func TestSignVerifyRoundtrip(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)

	now := time.Now()
	claims := NewAccessClaims("user-1", "u@example.com", RoleAdmin, "rt-1", testIssuer, time.Minute, now)

	token, err := codec.Sign(claims)
	require.NoError(t, err)

	got, err := codec.Verify(token)
	require.NoError(t, err)

	ident := got.Identity()
	require.Equal(t, "user-1", ident.UserID)
	require.Equal(t, "u@example.com", ident.Email)
	require.Equal(t, RoleAdmin, ident.Role)
	require.Equal(t, "rt-1", ident.RefreshID)
	require.True(t, ident.IsAdmin())
}

func TestVerifyFailureModes(t *testing.T) {
	t.Parallel()
	codec := newTestCodec(t)
	now := time.Now()

	t.Run("malformed token", func(t *testing.T) {
		_, err := codec.Verify("not.a.jwt")
		require.ErrorIs(t, err, ErrMalformed)

		_, err = codec.Verify("")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := NewAccessClaims("user-1", "u@example.com", RoleUser, "rt-1", testIssuer, time.Minute, now.Add(-time.Hour))
		token, err := codec.Sign(claims)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		require.ErrorIs(t, err, ErrExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewHS256([]byte("another-secret-another-secret-32"), testIssuer)
		require.NoError(t, err)

		claims := NewAccessClaims("user-1", "u@example.com", RoleUser, "rt-1", testIssuer, time.Minute, now)
		token, err := other.Sign(claims)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		require.ErrorIs(t, err, ErrInvalidSig)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		foreign, err := NewHS256([]byte("0123456789abcdef0123456789abcdef"), "someone-else")
		require.NoError(t, err)

		claims := NewAccessClaims("user-1", "u@example.com", RoleUser, "rt-1", "someone-else", time.Minute, now)
		token, err := foreign.Sign(claims)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		require.ErrorIs(t, err, ErrInvalidClaim)
	})
}

func TestNewHS256RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewHS256(nil, testIssuer)
	require.ErrorIs(t, err, ErrNoSigningKey)
}

package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// RefreshTokenBytes is the entropy of an opaque refresh token before
// encoding: 256 bits, enough that token values are unguessable.
const RefreshTokenBytes = 32

// NewOpaqueToken creates a cryptographically random token of size bytes,
// returned base64url-encoded without padding.
func NewOpaqueToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: reading randomness: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Fingerprint returns the deterministic SHA-256 fingerprint of a token,
// base64url-encoded. Only fingerprints are persisted; a database leak does
// not expose usable refresh tokens.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

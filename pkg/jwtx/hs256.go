package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSigningKey = errors.New("jwtx: no signing key configured")
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Signer mints signed access tokens.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates an access token and returns its claims when genuine.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256 signs and verifies tokens with a shared HMAC-SHA256 secret. The
// secret is externally supplied configuration; there is no default.
type HS256 struct {
	secret []byte
	issuer string
}

// NewHS256 returns a combined Signer/Verifier for the given secret.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) == 0 {
		return nil, ErrNoSigningKey
	}
	return &HS256{secret: secret, issuer: issuer}, nil
}

// Sign produces a compact signed token for the claims.
func (h *HS256) Sign(c Claims) (string, error) {
	if len(h.secret) == 0 {
		return "", ErrNoSigningKey
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(h.secret)
}

// Verify parses and validates a compact token: signature, expiry, not-before
// and (when configured) issuer. Errors map onto the package sentinels so the
// HTTP layer can answer with distinct codes.
func (h *HS256) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSig
		}
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrInvalidClaim
		}
	}

	if h.issuer != "" && claims.Issuer != h.issuer {
		return Claims{}, ErrInvalidClaim
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidClaim
	}
	return claims, nil
}

// Package jwtx signs and verifies the access tokens of the wayfarer backend.
// Verification is a pure cryptographic check with no I/O, safe to run on
// every request.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Access tokens stay short-lived; refresh tokens carry
// the session.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Global roles carried in the access token. Per-trip collaboration roles are
// resolved separately and never embedded in tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims are the access-token claims.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// Role is the global role ("user" or "admin").
	Role string `json:"role,omitempty"`

	// RTJ correlates the access token with the refresh-token record that was
	// active when it was issued. Useful for audit and targeted revocation.
	RTJ string `json:"rtj,omitempty"`
}

// NewAccessClaims builds claims for a freshly authenticated user. refreshID
// is the id of the refresh-token record minted alongside this access token.
func NewAccessClaims(subject, email, role, refreshID, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  role,
		RTJ:   refreshID,
	}
}

// Identity is the validated, immutable identity context handed to request
// handlers. It never carries mutable session state.
type Identity struct {
	UserID    string
	Email     string
	Role      string
	RefreshID string
}

// Identity converts verified claims into an identity context.
func (c Claims) Identity() Identity {
	return Identity{
		UserID:    c.Subject,
		Email:     c.Email,
		Role:      c.Role,
		RefreshID: c.RTJ,
	}
}

// IsAdmin reports whether the identity holds the global admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

package domain

import "time"

// TokenPair is what login and refresh return: a short-lived signed access
// token and the opaque refresh token that can mint the next pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access-token lifetime in seconds
}

// RefreshToken models the stored refresh-token record. Records are flipped
// inactive on rotation, logout or reuse detection and kept for audit; they
// are never deleted except by expiry housekeeping.
type RefreshToken struct {
	ID         string // correlates with the rtj claim of access tokens
	UserID     string
	TokenHash  string // SHA-256 fingerprint of the opaque token value
	Active     bool
	UserAgent  string
	Platform   string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Usable reports whether the record can still mint a new pair.
func (t RefreshToken) Usable(now time.Time) bool {
	return t.Active && now.Before(t.ExpiresAt)
}

// DeviceInfo is opaque device metadata recorded with each refresh token so
// users can tell their sessions apart.
type DeviceInfo struct {
	UserAgent string
	Platform  string
	IP        string
}

package domain

import "time"

// Auth providers. Local accounts carry a password hash; OAuth accounts carry
// a provider linkage and may have no hash at all.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// User is the persisted user security record. The failed-login counter and
// locked-until gate are mutated only by the session service.
type User struct {
	ID           string
	Email        string
	PasswordHash string // empty for OAuth-only accounts
	Role         string // global role: "user" or "admin"

	FailedLoginCount int
	LockedUntil      *time.Time
	LastLoginAt      *time.Time
	LastLoginIP      string

	ProviderType    string // "local", "google", ...
	ProviderID      string // subject id at the provider, empty for local
	IsOAuthUser     bool
	ProviderProfile string // opaque provider profile JSON, stored as-is

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockedAt reports whether the account lockout gate is closed at the given
// time. An elapsed locked-until means the account is unlocked; the stale
// counter is kept for audit and overwritten on the next outcome.
func (u User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Profile is the subset of the user record returned to clients on login.
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Profile projects the security record onto its client-visible shape.
func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
	}
}

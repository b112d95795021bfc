package store

import (
	"context"
	"errors"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrUnavailable marks a storage failure that persisted through the
	// bounded retry budget at the driver boundary.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the root data access interface. Concrete drivers implement it;
// services depend only on this package. Sub-repositories keep the credential
// store and the refresh-token store as separate concerns.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit or Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise. Refresh-token rotation depends on this:
	// consume-old plus create-new must be one atomic unit.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store: persisted user security records.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail drives login. ErrNotFound must be collapsed into the
	// generic invalid-credentials failure by the caller.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByProvider finds the account linked to an OAuth identity.
	GetUserByProvider(ctx context.Context, providerType, providerID string) (domain.User, error)

	// CreateUser inserts a new record. ErrAlreadyExists on a taken email.
	CreateUser(ctx context.Context, u domain.User) error

	// IncrementLoginFailures atomically bumps the failed-login counter and
	// returns the new value. Concurrent failed logins must not lose updates.
	IncrementLoginFailures(ctx context.Context, userID string) (int, error)

	// LockAccount sets the locked-until gate. The counter is left as-is
	// for audit.
	LockAccount(ctx context.Context, userID string, until time.Time) error

	// RecordLoginSuccess resets the counter, clears the lock and stamps
	// the last-login timestamp and origin.
	RecordLoginSuccess(ctx context.Context, userID, ip string, at time.Time) error
}

// RefreshTokens is the refresh-token store.
type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record for a token fingerprint,
	// active or not.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken flips active to false only if the record is
	// currently active, stamping last-used-at. It reports whether this
	// call performed the flip: under concurrent rotation of the same
	// token exactly one caller sees true.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error)

	// RevokeRefreshToken marks the record inactive. Idempotent: unknown
	// or already-inactive fingerprints are a no-op success.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens deactivates every active record of the
	// user and returns how many were revoked. This is the compensating
	// control for reuse detection.
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) (int64, error)

	// ListUserRefreshTokens returns the user's records, newest first.
	ListUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error)

	CountActiveUserRefreshTokens(ctx context.Context, userID string) (int, error)

	// DeleteExpiredRefreshTokens is retention housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

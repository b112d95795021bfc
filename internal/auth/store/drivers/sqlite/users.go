package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
	"github.com/wayfarerhq/wayfarer/internal/auth/store"
)

type usersRepo struct {
	db querier
}

const userColumns = `id, email, password_hash, role, failed_login_count, locked_until,
	last_login_at, last_login_ip, provider_type, provider_id, is_oauth_user,
	provider_profile, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetUserByProvider(ctx context.Context, providerType, providerID string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider_type = ? AND provider_id = ?`,
		providerType, providerID)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	return withRetry(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		createdAt, updatedAt := u.CreatedAt, u.UpdatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if updatedAt.IsZero() {
			updatedAt = now
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, role, provider_type,
				provider_id, is_oauth_user, provider_profile, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Email, mapOptionalString(u.PasswordHash), u.Role,
			u.ProviderType, mapOptionalString(u.ProviderID), u.IsOAuthUser,
			mapOptionalString(u.ProviderProfile), createdAt.UTC(), updatedAt.UTC(),
		)
		if err != nil && isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	})
}

func (r *usersRepo) IncrementLoginFailures(ctx context.Context, userID string) (int, error) {
	var count int
	err := withRetry(ctx, func(ctx context.Context) error {
		row := r.db.QueryRowContext(ctx, `
			UPDATE users
			SET failed_login_count = failed_login_count + 1,
			    updated_at = ?
			WHERE id = ?
			RETURNING failed_login_count`, time.Now().UTC(), userID)
		return row.Scan(&count)
	})
	if err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *usersRepo) LockAccount(ctx context.Context, userID string, until time.Time) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE users
			SET locked_until = ?, updated_at = ?
			WHERE id = ?`, until.UTC(), time.Now().UTC(), userID)
		return err
	})
}

func (r *usersRepo) RecordLoginSuccess(ctx context.Context, userID, ip string, at time.Time) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE users
			SET failed_login_count = 0,
			    locked_until = NULL,
			    last_login_at = ?,
			    last_login_ip = ?,
			    updated_at = ?
			WHERE id = ?`, at.UTC(), mapOptionalString(ip), at.UTC(), userID)
		return err
	})
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                           domain.User
		passwordHash                sql.NullString
		lockedUntil, lastLoginAt    sql.NullTime
		lastLoginIP                 sql.NullString
		providerID, providerProfile sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.Email, &passwordHash, &u.Role, &u.FailedLoginCount, &lockedUntil,
		&lastLoginAt, &lastLoginIP, &u.ProviderType, &providerID, &u.IsOAuthUser,
		&providerProfile, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.PasswordHash = mapNullString(passwordHash)
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.LastLoginAt = mapNullTimePtr(lastLoginAt)
	u.LastLoginIP = mapNullString(lastLoginIP)
	u.ProviderID = mapNullString(providerID)
	u.ProviderProfile = mapNullString(providerProfile)
	return u, nil
}

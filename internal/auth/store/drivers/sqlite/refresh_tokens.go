package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/auth/domain"
)

type refreshTokensRepo struct {
	db querier
}

const refreshColumns = `id, user_id, token_hash, active, user_agent, platform,
	expires_at, created_at, last_used_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	return withRetry(ctx, func(ctx context.Context) error {
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO refresh_tokens (id, user_id, token_hash, active,
				user_agent, platform, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.TokenHash, t.Active,
			mapOptionalString(t.UserAgent), mapOptionalString(t.Platform),
			t.ExpiresAt.UTC(), createdAt.UTC(),
		)
		return err
	})
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	return scanRefreshToken(row)
}

// ConsumeRefreshToken deactivates the record only if it is currently active.
// The conditional UPDATE is the serialization point: of two concurrent
// rotations of the same token, exactly one observes rows-affected = 1.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	var consumed bool
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE refresh_tokens
			SET active = 0, last_used_at = ?
			WHERE token_hash = ? AND active = 1`, now.UTC(), hash)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		consumed = n == 1
		return nil
	})
	return consumed, err
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE refresh_tokens SET active = 0
			WHERE token_hash = ? AND active = 1`, hash)
		return err
	})
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	var revoked int64
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE refresh_tokens SET active = 0
			WHERE user_id = ? AND active = 1`, userID)
		if err != nil {
			return err
		}
		revoked, err = res.RowsAffected()
		return err
	})
	return revoked, err
}

func (r *refreshTokensRepo) ListUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapTransient(err)
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshTokenRows(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, mapTransient(rows.Err())
}

func (r *refreshTokensRepo) CountActiveUserRefreshTokens(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE user_id = ? AND active = 1`, userID).Scan(&count)
	return count, mapTransient(err)
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now().UTC())
		return err
	})
}

func scanRefreshToken(row *sql.Row) (domain.RefreshToken, error) {
	var (
		t                   domain.RefreshToken
		userAgent, platform sql.NullString
		lastUsedAt          sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Active,
		&userAgent, &platform, &t.ExpiresAt, &t.CreatedAt, &lastUsedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.UserAgent = mapNullString(userAgent)
	t.Platform = mapNullString(platform)
	t.LastUsedAt = mapNullTimePtr(lastUsedAt)
	return t, nil
}

func scanRefreshTokenRows(rows *sql.Rows) (domain.RefreshToken, error) {
	var (
		t                   domain.RefreshToken
		userAgent, platform sql.NullString
		lastUsedAt          sql.NullTime
	)
	err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Active,
		&userAgent, &platform, &t.ExpiresAt, &t.CreatedAt, &lastUsedAt)
	if err != nil {
		return domain.RefreshToken{}, mapTransient(err)
	}
	t.UserAgent = mapNullString(userAgent)
	t.Platform = mapNullString(platform)
	t.LastUsedAt = mapNullTimePtr(lastUsedAt)
	return t, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/trips/domain"
	"github.com/wayfarerhq/wayfarer/internal/trips/store"
)

type collabRepo struct {
	db *sql.DB
}

func (r *collabRepo) UpsertCollaborator(ctx context.Context, c domain.Collaborator) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trip_collaborators (trip_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (trip_id, user_id) DO UPDATE SET role = excluded.role`,
		c.TripID, c.UserID, c.Role, createdAt.UTC(),
	)
	return err
}

func (r *collabRepo) RemoveCollaborator(ctx context.Context, tripID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM trip_collaborators WHERE trip_id = ? AND user_id = ?`,
		tripID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *collabRepo) GetCollaboratorRole(ctx context.Context, tripID, userID string) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT role FROM trip_collaborators WHERE trip_id = ? AND user_id = ?`,
		tripID, userID).Scan(&role)
	if err != nil {
		return "", mapNotFound(err)
	}
	return role, nil
}

func (r *collabRepo) ListCollaborators(ctx context.Context, tripID string) ([]domain.Collaborator, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT trip_id, user_id, role, created_at FROM trip_collaborators
		WHERE trip_id = ? ORDER BY created_at`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Collaborator
	for rows.Next() {
		var c domain.Collaborator
		if err := rows.Scan(&c.TripID, &c.UserID, &c.Role, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

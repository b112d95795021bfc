package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/trips/domain"
	"github.com/wayfarerhq/wayfarer/internal/trips/store"
)

type tripsRepo struct {
	db *sql.DB
}

const tripColumns = `id, owner_id, name, description, starts_on, ends_on,
	created_at, updated_at`

func (r *tripsRepo) CreateTrip(ctx context.Context, t domain.Trip) error {
	now := time.Now().UTC()
	createdAt, updatedAt := t.CreatedAt, t.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trips (id, owner_id, name, description, starts_on, ends_on,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Name, t.Description,
		mapOptionalTime(t.StartsOn), mapOptionalTime(t.EndsOn),
		createdAt.UTC(), updatedAt.UTC(),
	)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *tripsRepo) GetTrip(ctx context.Context, id string) (domain.Trip, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)
	return scanTrip(row.Scan)
}

func (r *tripsRepo) UpdateTrip(ctx context.Context, t domain.Trip) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE trips
		SET name = ?, description = ?, starts_on = ?, ends_on = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Description,
		mapOptionalTime(t.StartsOn), mapOptionalTime(t.EndsOn),
		time.Now().UTC(), t.ID,
	)
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

func (r *tripsRepo) DeleteTrip(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
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

func (r *tripsRepo) ListUserTrips(ctx context.Context, userID string) ([]domain.Trip, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tripColumns+` FROM trips
		WHERE owner_id = ?
		   OR id IN (SELECT trip_id FROM trip_collaborators WHERE user_id = ?)
		ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows.Scan)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func scanTrip(scan func(dest ...any) error) (domain.Trip, error) {
	var (
		t                domain.Trip
		startsOn, endsOn sql.NullTime
	)
	err := scan(
		&t.ID, &t.OwnerID, &t.Name, &t.Description, &startsOn, &endsOn,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Trip{}, mapNotFound(err)
	}
	t.StartsOn = mapNullTimePtr(startsOn)
	t.EndsOn = mapNullTimePtr(endsOn)
	return t, nil
}

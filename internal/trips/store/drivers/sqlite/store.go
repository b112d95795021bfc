// Package sqlite implements the trips store over the shared SQLite database.
// Schema migrations live with the auth store; this driver only assumes the
// trips and trip_collaborators tables exist.
package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/trips/store"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db *sql.DB
}

// NewStore wraps an already-open database handle, normally the one owned by
// the auth store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Trips() store.Trips                 { return &tripsRepo{db: s.db} }
func (s *Store) Collaborators() store.Collaborators { return &collabRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

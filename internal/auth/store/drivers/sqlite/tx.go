package sqlite

import (
	"context"
	"database/sql"

	"github.com/wayfarerhq/wayfarer/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return mapTransient(t.tx.Commit()) }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op: the caller commits or rolls back and the outer DB stays
// open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op inside a transaction; migrations run at startup.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Users() store.Users                 { return &usersRepo{db: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: t.tx} }

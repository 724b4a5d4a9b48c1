// Package sqlite implements a SQLite-backed storage.Repository on the pure-Go
// modernc.org/sqlite driver. Inserts are multi-row statements inside a
// transaction; SQLite has no dedicated bulk-load API like Postgres COPY.
package sqlite

import (
	"context"

	_ "modernc.org/sqlite"

	"housingetl/internal/storage/sqldb"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:housing.db?cache=shared"
	//   "housing.db"
	//   ":memory:"
	DSN string

	// Table is the target table name, e.g. "housing".
	Table string
}

// Repository is a SQLite-backed implementation of storage.Repository and
// storage.Querier.
type Repository struct {
	*sqldb.DB
	cfg Config
}

// NewRepository opens a SQLite connection and returns a Repository plus a
// Close function for cleanup. The pool is capped at one connection so
// ":memory:" databases are shared by every statement.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	db, err := sqldb.Open(ctx, sqldb.Options{
		Driver:       "sqlite",
		Kind:         "sqlite",
		DSN:          cfg.DSN,
		Table:        cfg.Table,
		MaxOpenConns: 1,
	})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{DB: db, cfg: cfg}, closeFn, nil
}

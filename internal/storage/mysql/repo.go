// Package mysql implements a MySQL-backed storage.Repository using
// go-sql-driver/mysql. MySQL is the original home of the housing table.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"housingetl/internal/storage/sqldb"
)

// Config holds MySQL repository configuration.
type Config struct {
	// DSN uses the go-sql-driver format, e.g.
	// "etl:secret@tcp(localhost:3306)/housing".
	DSN   string
	Table string
}

// Repository is a MySQL-backed implementation of storage.Repository and
// storage.Querier.
type Repository struct {
	*sqldb.DB
	cfg Config
}

// NewRepository validates the DSN, connects, and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	parsed, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	// One round trip per batch instead of prepare + exec.
	parsed.InterpolateParams = true

	db, err := sqldb.Open(ctx, sqldb.Options{
		Driver: "mysql",
		Kind:   "mysql",
		DSN:    parsed.FormatDSN(),
		Table:  cfg.Table,
	})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{DB: db, cfg: cfg}, closeFn, nil
}

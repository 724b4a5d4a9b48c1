// Package sqldb is the database/sql core shared by the sqlite, mysql and
// mssql backends: connection setup through sqlx, multi-row INSERTs and the
// aggregate queries built with goqu.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"housingetl/internal/storage"
)

// Options configures Open.
type Options struct {
	Driver string // database/sql driver name
	Kind   string // storage kind, used for SQL dialect and error prefixes
	DSN    string
	Table  string

	// MaxOpenConns caps the pool when > 0. SQLite needs 1 so every statement
	// sees the same in-memory database.
	MaxOpenConns int
}

// DB implements storage.Repository and storage.Querier over database/sql.
// Close is wrapped by each backend's adapter.
type DB struct {
	X     *sqlx.DB
	Kind  string
	Table string
}

// Open connects and pings with a 5s bound.
func Open(ctx context.Context, opt Options) (*DB, error) {
	if strings.TrimSpace(opt.DSN) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", opt.Kind)
	}
	x, err := sqlx.Open(opt.Driver, opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", opt.Kind, err)
	}
	if opt.MaxOpenConns > 0 {
		x.SetMaxOpenConns(opt.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := x.PingContext(pingCtx); err != nil {
		_ = x.Close()
		return nil, fmt.Errorf("%s: ping: %w", opt.Kind, err)
	}
	return &DB{X: x, Kind: opt.Kind, Table: opt.Table}, nil
}

// Tx is a load transaction on a DB. Each CopyFrom is one multi-row INSERT.
type Tx struct {
	tx    *sqlx.Tx
	kind  string
	table string
}

// Begin implements storage.Repository.
func (d *DB) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := d.X.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", d.Kind, err)
	}
	return &Tx{tx: tx, kind: d.Kind, table: d.Table}, nil
}

// CopyFrom implements storage.Tx.
func (t *Tx) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if err := checkRows(t.kind, columns, rows); err != nil || len(rows) == 0 {
		return 0, err
	}
	query, args, err := storage.InsertSQL(t.kind, t.table, columns, rows)
	if err != nil {
		return 0, fmt.Errorf("%s: build insert: %w", t.kind, err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: insert: %w", t.kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return int64(len(rows)), nil
	}
	return n, nil
}

// Commit implements storage.Tx.
func (t *Tx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", t.kind, err)
	}
	return nil
}

// Rollback implements storage.Tx.
func (t *Tx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%s: rollback: %w", t.kind, err)
	}
	return nil
}

// CopyFrom inserts rows in a transaction of their own.
func (d *DB) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if err := checkRows(d.Kind, columns, rows); err != nil || len(rows) == 0 {
		return 0, err
	}
	tx, err := d.Begin(ctx)
	if err != nil {
		return 0, err
	}
	n, err := tx.CopyFrom(ctx, columns, rows)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

func checkRows(kind string, columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return fmt.Errorf("%s: CopyFrom: columns must not be empty", kind)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("%s: CopyFrom: row %d length %d != columns length %d", kind, i, len(row), len(columns))
		}
	}
	return nil
}

// Exec runs a single statement. Blank statements are ignored.
func (d *DB) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := d.X.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: exec: %w", d.Kind, err)
	}
	return nil
}

// SumBedroomsAbove implements storage.Querier.
func (d *DB) SumBedroomsAbove(ctx context.Context, threshold int64) (int64, error) {
	query, args, err := storage.SumBedroomsAboveSQL(d.Kind, d.Table, threshold)
	if err != nil {
		return 0, fmt.Errorf("%s: build query: %w", d.Kind, err)
	}
	var n int64
	if err := d.X.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%s: query: %w", d.Kind, err)
	}
	return n, nil
}

// AvgIncomeForZip implements storage.Querier.
func (d *DB) AvgIncomeForZip(ctx context.Context, zip string) (float64, bool, error) {
	query, args, err := storage.AvgIncomeForZipSQL(d.Kind, d.Table, zip)
	if err != nil {
		return 0, false, fmt.Errorf("%s: build query: %w", d.Kind, err)
	}
	var avg sql.NullFloat64
	if err := d.X.GetContext(ctx, &avg, query, args...); err != nil {
		return 0, false, fmt.Errorf("%s: query: %w", d.Kind, err)
	}
	return avg.Float64, avg.Valid, nil
}

// Close closes the pool.
func (d *DB) Close() error { return d.X.Close() }

// Package postgres implements a Postgres repository using pgx v5. Rows are
// loaded with COPY; aggregate queries are built with goqu.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"housingetl/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // optionally schema-qualified, e.g. "public.housing"
}

// Repository is a Postgres-backed implementation of storage.Repository and
// storage.Querier.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository, pings the server, and returns a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// copyTx is a load transaction whose CopyFrom uses the COPY protocol.
type copyTx struct {
	tx    pgx.Tx
	table pgx.Identifier
}

// Begin implements storage.Repository.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", describe(err))
	}
	return &copyTx{tx: tx, table: splitFQN(r.cfg.Table)}, nil
}

func (t *copyTx) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return copyRows(ctx, t.tx, t.table, columns, rows)
}

func (t *copyTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", describe(err))
	}
	return nil
}

func (t *copyTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback: %w", describe(err))
	}
	return nil
}

// CopyFrom loads rows with the COPY protocol in a transaction of their own.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var n int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		n, err = copyRows(ctx, tx, splitFQN(r.cfg.Table), columns, rows)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func copyRows(ctx context.Context, tx pgx.Tx, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := tx.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy: %w", describe(err))
	}
	return n, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", describe(err))
	}
	return nil
}

// SumBedroomsAbove implements storage.Querier.
func (r *Repository) SumBedroomsAbove(ctx context.Context, threshold int64) (int64, error) {
	query, args, err := storage.SumBedroomsAboveSQL("postgres", r.cfg.Table, threshold)
	if err != nil {
		return 0, fmt.Errorf("postgres: build query: %w", err)
	}
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: query: %w", describe(err))
	}
	return n, nil
}

// AvgIncomeForZip implements storage.Querier.
func (r *Repository) AvgIncomeForZip(ctx context.Context, zip string) (float64, bool, error) {
	query, args, err := storage.AvgIncomeForZipSQL("postgres", r.cfg.Table, zip)
	if err != nil {
		return 0, false, fmt.Errorf("postgres: build query: %w", err)
	}
	var avg *float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&avg); err != nil {
		return 0, false, fmt.Errorf("postgres: query: %w", describe(err))
	}
	if avg == nil {
		return 0, false, nil
	}
	return *avg, true, nil
}

// describe adds the server detail and SQLSTATE of a *pgconn.PgError to the
// message while keeping it unwrappable.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s, %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

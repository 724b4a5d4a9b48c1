// Package storage contains the storage-agnostic contracts of the sink: the
// Repository interface backends implement, a registry to construct them by
// kind, the batched loader, and the Sink the pipeline hands merged records
// to.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// Config is the backend-neutral repository configuration.
type Config struct {
	// Kind selects the backend: sqlite, postgres, mysql, mssql.
	Kind string

	// DSN is passed to the backend driver unchanged.
	DSN string

	// Table is the destination table, optionally schema-qualified.
	Table string

	// Columns lists destination columns in insert order. Empty means
	// HousingColumns.
	Columns []string

	// ConnectRetries is the number of extra connection attempts New makes
	// before giving up.
	ConnectRetries int
}

// Repository is the minimal write surface a backend exposes.
type Repository interface {
	// Begin opens a load transaction. Rows copied through the returned Tx
	// become visible together on Commit and not at all on Rollback.
	Begin(ctx context.Context) (Tx, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	Close()
}

// Tx is one load transaction on a Repository.
type Tx interface {
	// CopyFrom bulk-inserts rows aligned to columns and returns the number of
	// rows inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	Commit(ctx context.Context) error

	// Rollback discards every row copied so far. Rolling back a finished
	// transaction is a no-op.
	Rollback(ctx context.Context) error
}

// Querier answers the aggregate questions asked of a loaded housing table.
type Querier interface {
	// SumBedroomsAbove returns the sum of total_bedrooms over rows whose
	// total_bedrooms is strictly greater than threshold. No rows sums to 0.
	SumBedroomsAbove(ctx context.Context, threshold int64) (int64, error)

	// AvgIncomeForZip returns the average median_income of rows with the
	// given zip. ok is false when no row matches.
	AvgIncomeForZip(ctx context.Context, zip string) (avg float64, ok bool, err error)
}

// Factory constructs a Repository for a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// connectBackOff is swapped by tests for a faster schedule.
var connectBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

// New constructs the Repository registered for cfg.Kind. Factory errors are
// retried cfg.ConnectRetries times with exponential backoff; the final
// failure is a *PersistenceError with Op "connect".
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}

	retries := max(cfg.ConnectRetries, 0)
	repo, err := backoff.Retry(ctx, func() (Repository, error) {
		return f(ctx, cfg)
	},
		backoff.WithBackOff(connectBackOff()),
		backoff.WithMaxTries(uint(retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("kind", cfg.Kind).Dur("retry_in", next).Msg("storage: connect failed, retrying")
		}),
	)
	if err != nil {
		return nil, &PersistenceError{Op: "connect", Kind: cfg.Kind, Table: cfg.Table, Err: err}
	}
	return repo, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations insert
// the rows (aligned to columns) and return the number of rows inserted. They
// must cancel promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// batcher accumulates rows and hands them to copyFn batchSize at a time.
type batcher struct {
	columns []string
	size    int
	copyFn  CopyFn

	rows    [][]any
	copied  int64
	batches int
	started time.Time
}

func (b *batcher) add(ctx context.Context, row []any) error {
	b.rows = append(b.rows, row)
	if len(b.rows) < b.size {
		return nil
	}
	return b.flush(ctx)
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.rows) == 0 {
		return nil
	}
	rows := b.rows
	// pgx reads CopyFrom rows lazily, so the next batch gets its own array.
	b.rows = make([][]any, 0, b.size)

	n, err := b.copyFn(ctx, b.columns, rows)
	b.copied += n
	if err != nil {
		return fmt.Errorf("batch %d (%d rows): %w", b.batches+1, len(rows), err)
	}
	b.batches++
	log.Debug().
		Int("batch", b.batches).
		Int64("rows", n).
		Str("copied", humanize.Comma(b.copied)).
		Dur("elapsed", time.Since(b.started).Truncate(time.Millisecond)).
		Msg("loader: batch copied")
	return nil
}

// LoadBatches drains typed rows from in, groups them into batches of
// batchSize, and calls copyFn for each non-empty batch. It returns the number
// of rows copyFn reported and the first error, which names the failing batch.
//
// Rows already copied are not undone here; LoadTx wraps LoadBatches in a
// transaction when a failure must leave nothing behind.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	b := &batcher{
		columns: columns,
		size:    batchSize,
		copyFn:  copyFn,
		rows:    make([][]any, 0, batchSize),
		started: time.Now(),
	}
	for {
		select {
		case <-ctx.Done():
			return b.copied, ctx.Err()

		case row, ok := <-in:
			if !ok {
				err := b.flush(ctx)
				return b.copied, err
			}
			if err := b.add(ctx, row); err != nil {
				return b.copied, err
			}
		}
	}
}

// LoadTx loads every row of in through one transaction of repo. Either all
// rows are committed or none are: on any error, cancellation included, the
// transaction is rolled back and LoadTx reports 0 rows.
func LoadTx(
	ctx context.Context,
	repo Repository,
	columns []string,
	in <-chan []any,
	batchSize int,
) (int64, error) {
	tx, err := repo.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}

	n, err := LoadBatches(ctx, columns, in, batchSize, tx.CopyFrom)
	if err != nil {
		// The rollback has to reach the server even after ctx is canceled.
		if rerr := tx.Rollback(context.WithoutCancel(ctx)); rerr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
		log.Warn().Err(err).Str("discarded", humanize.Comma(n)).Msg("loader: load rolled back")
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return 0, fmt.Errorf("commit: %w", err)
	}
	log.Debug().Str("committed", humanize.Comma(n)).Msg("loader: load committed")
	return n, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"housingetl/pkg/records"
)

// SinkOptions tune how a Sink loads rows.
type SinkOptions struct {
	// AutoCreateTable runs EnsureTable before loading.
	AutoCreateTable bool

	// BatchSize is the number of rows per CopyFrom call within the load
	// transaction. Default 500.
	BatchSize int

	// ChannelBuffer is the capacity of the channel feeding the loader.
	// Default 1000.
	ChannelBuffer int
}

// Sink persists merged housing records through a Repository.
type Sink struct {
	cfg Config
	opt SinkOptions
}

// openRepository is a test seam; it points to New by default.
var openRepository = New

// NewSink returns a Sink writing to the backend described by cfg.
func NewSink(cfg Config, opt SinkOptions) *Sink {
	if len(cfg.Columns) == 0 {
		cfg.Columns = HousingColumns()
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = 500
	}
	if opt.ChannelBuffer <= 0 {
		opt.ChannelBuffer = 1000
	}
	return &Sink{cfg: cfg, opt: opt}
}

// Columns returns the destination columns in insert order.
func (s *Sink) Columns() []string { return append([]string(nil), s.cfg.Columns...) }

// InsertAll types the rows of ds, opens the repository, optionally creates
// the table, and loads every row in a single transaction. Any failure is a
// *PersistenceError and leaves no row of ds in the table. Rows are typed
// before a connection is opened, so bad data never reaches the database.
func (s *Sink) InsertAll(ctx context.Context, ds records.Dataset) (int64, error) {
	rows, err := s.prepare(ds)
	if err != nil {
		return 0, s.fail("prepare", err)
	}

	repo, err := openRepository(ctx, s.cfg)
	if err != nil {
		return 0, s.fail("connect", err)
	}
	defer repo.Close()

	if s.opt.AutoCreateTable {
		if err := EnsureTable(ctx, s.cfg, repo); err != nil {
			return 0, s.fail("ddl", err)
		}
	}

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, s.opt.ChannelBuffer)
	go func() {
		defer close(in)
		for _, r := range rows {
			select {
			case in <- r:
			case <-lctx.Done():
				return
			}
		}
	}()

	n, err := LoadTx(lctx, repo, s.cfg.Columns, in, s.opt.BatchSize)
	if err != nil {
		return n, s.fail("insert", err)
	}
	log.Info().
		Str("kind", s.cfg.Kind).
		Str("table", s.cfg.Table).
		Str("rows", humanize.Comma(n)).
		Msg("storage: load complete")
	return n, nil
}

// prepare checks the schema, coerces typed columns and lays the rows out in
// column order.
func (s *Sink) prepare(ds records.Dataset) ([][]any, error) {
	for _, c := range s.cfg.Columns {
		if !ds.HasColumn(c) {
			return nil, fmt.Errorf("dataset %s does not declare column %s", ds.Name, c)
		}
	}

	coerce := coercion(s.cfg.Columns)
	typed := coerce.Apply(ds.Rows)
	if bad := coerce.Unconverted(typed); len(bad) > 0 {
		idx := make([]int, 0, len(bad))
		for i := range bad {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		first := idx[0]
		col := bad[first][0]
		guid, _ := typed[first].String("guid")
		return nil, fmt.Errorf("%d row(s) with non-integer values; first: row %d guid %q column %s value %q",
			len(bad), first, guid, col, typed[first][col])
	}

	out := make([][]any, len(typed))
	for i, r := range typed {
		row := make([]any, len(s.cfg.Columns))
		for j, c := range s.cfg.Columns {
			row[j] = r[c]
		}
		out[i] = row
	}
	return out, nil
}

func (s *Sink) fail(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Kind: s.cfg.Kind, Table: s.cfg.Table, Err: err}
}

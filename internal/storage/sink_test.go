package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingetl/internal/ddl"
	"housingetl/pkg/records"
)

func merged() records.Dataset {
	return records.Dataset{
		Name:    "merged",
		Columns: append(HousingColumns(), "extra"),
		Rows: []records.Record{
			{"guid": "g1", "zip_code": "90000", "city": "LA", "state": "CA", "total_rooms": "1500", "median_income": "120000", "extra": "x"},
			{"guid": "g2", "zip_code": nil, "total_bedrooms": "1000.0"},
		},
	}
}

// registerFake registers repo under a fresh kind with the SQLite dialect.
func registerFake(t *testing.T, kind string, repo *fakeRepo) Config {
	t.Helper()
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) { return repo, nil })
	RegisterDDL(kind, ddl.SQLite)
	return Config{Kind: kind, Table: "housing"}
}

func TestSink_InsertAll(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	cfg := registerFake(t, "sink-ok", repo)
	s := NewSink(cfg, SinkOptions{AutoCreateTable: true, BatchSize: 1})

	ds := merged()
	n, err := s.InsertAll(context.Background(), ds)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.Len(t, repo.execs, 1)
	assert.Contains(t, repo.execs[0], `CREATE TABLE IF NOT EXISTS "housing"`)
	assert.Contains(t, repo.execs[0], `"total_rooms" INTEGER`)

	assert.Equal(t, HousingColumns(), repo.columns)
	require.Len(t, repo.rows, 2)
	assert.Equal(t, []any{"g1", "90000", "LA", "CA", nil, nil, int64(1500), nil, nil, nil, int64(120000), nil}, repo.rows[0])
	assert.Equal(t, int64(1000), repo.rows[1][7])
	assert.True(t, repo.closed)
	assert.Equal(t, 1, repo.commits)
	assert.Zero(t, repo.rollbacks)

	assert.Equal(t, "1500", ds.Rows[0]["total_rooms"], "input dataset must not change")
}

func TestSink_FailedLoadLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		repo      *fakeRepo
		wantMsg   string
		rollbacks int
	}{
		{
			name:      "second batch fails",
			repo:      &fakeRepo{copyErr: errors.New("UNIQUE constraint failed"), failCopyAt: 2},
			wantMsg:   "batch 2 (1 rows): UNIQUE constraint failed",
			rollbacks: 1,
		},
		{
			name:    "commit fails",
			repo:    &fakeRepo{commitErr: errors.New("serialization failure")},
			wantMsg: "commit: serialization failure",
		},
		{
			name:    "begin fails",
			repo:    &fakeRepo{beginErr: errors.New("too many connections")},
			wantMsg: "begin: too many connections",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := registerFake(t, "sink-atomic-"+tc.name, tc.repo)
			n, err := NewSink(cfg, SinkOptions{BatchSize: 1}).InsertAll(context.Background(), merged())

			var pe *PersistenceError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "insert", pe.Op)
			assert.Contains(t, err.Error(), tc.wantMsg)
			assert.Zero(t, n)
			assert.Empty(t, tc.repo.rows)
			assert.Zero(t, tc.repo.commits)
			assert.Equal(t, tc.rollbacks, tc.repo.rollbacks)
			assert.True(t, tc.repo.closed)
		})
	}
}

func TestSink_CustomColumnsSkipDDLWhenDisabled(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	cfg := registerFake(t, "sink-cols", repo)
	cfg.Columns = []string{"guid", "total_rooms"}

	n, err := NewSink(cfg, SinkOptions{}).InsertAll(context.Background(), merged())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Empty(t, repo.execs)
	assert.Equal(t, []any{"g1", int64(1500)}, repo.rows[0])
}

func TestSink_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		repo    *fakeRepo
		ds      func() records.Dataset
		auto    bool
		wantOp  string
		wantMsg string
	}{
		{
			name: "missing_column",
			repo: &fakeRepo{},
			ds: func() records.Dataset {
				ds := merged()
				ds.Columns = ds.Columns[:3]
				return ds
			},
			wantOp:  "prepare",
			wantMsg: "does not declare column state",
		},
		{
			name: "non_integer",
			repo: &fakeRepo{},
			ds: func() records.Dataset {
				ds := merged()
				ds.Rows = append(ds.Rows, records.Record{"guid": "g3", "population": "ZZZZ"})
				return ds
			},
			wantOp:  "prepare",
			wantMsg: `row 2 guid "g3" column population value "ZZZZ"`,
		},
		{
			name:    "ddl",
			repo:    &fakeRepo{execErr: errors.New("permission denied")},
			ds:      merged,
			auto:    true,
			wantOp:  "ddl",
			wantMsg: "permission denied",
		},
		{
			name:    "insert",
			repo:    &fakeRepo{copyErr: errors.New("disk full")},
			ds:      merged,
			wantOp:  "insert",
			wantMsg: "disk full",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := registerFake(t, "sink-"+tc.name, tc.repo)
			_, err := NewSink(cfg, SinkOptions{AutoCreateTable: tc.auto}).InsertAll(context.Background(), tc.ds())

			var pe *PersistenceError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.wantOp, pe.Op)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestSink_PrepareFailsBeforeConnecting(t *testing.T) {
	t.Parallel()

	connected := false
	Register("sink-noconnect", func(ctx context.Context, cfg Config) (Repository, error) {
		connected = true
		return &fakeRepo{}, nil
	})
	ds := merged()
	ds.Rows[0] = records.Record{"guid": "g1", "households": "many"}

	_, err := NewSink(Config{Kind: "sink-noconnect", Table: "housing"}, SinkOptions{}).InsertAll(context.Background(), ds)
	require.Error(t, err)
	assert.False(t, connected)
}

func TestSink_UnsupportedKind(t *testing.T) {
	t.Parallel()

	_, err := NewSink(Config{Kind: "nope", Table: "housing"}, SinkOptions{}).InsertAll(context.Background(), merged())
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "connect", pe.Op)
}

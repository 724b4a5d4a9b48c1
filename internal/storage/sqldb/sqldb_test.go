package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Options{Driver: "sqlite", Kind: "sqlite", DSN: ":memory:", Table: "housing", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Exec(context.Background(),
		`CREATE TABLE housing (guid TEXT, zip_code TEXT, total_bedrooms INTEGER, median_income INTEGER)`))
	return db
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Options{Driver: "sqlite", Kind: "sqlite", DSN: "  "})
	assert.EqualError(t, err, "sqlite: DSN must not be empty")
}

func TestCopyFromAndAggregates(t *testing.T) {
	t.Parallel()

	db := newMemDB(t)
	ctx := context.Background()
	cols := []string{"guid", "zip_code", "total_bedrooms", "median_income"}

	n, err := db.CopyFrom(ctx, cols, [][]any{
		{"g1", "90000", int64(1200), int64(100000)},
		{"g2", "90000", int64(1800), int64(200001)},
		{"g3", "10000", int64(900), nil},
		{"g4", nil, nil, int64(5)},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	sum, err := db.SumBedroomsAbove(ctx, 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 3000, sum)

	sum, err = db.SumBedroomsAbove(ctx, 5000)
	require.NoError(t, err)
	assert.EqualValues(t, 0, sum)

	avg, ok, err := db.AvgIncomeForZip(ctx, "90000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 150000.5, avg, 1e-9)

	_, ok, err = db.AvgIncomeForZip(ctx, "99999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCopyFrom_Validation(t *testing.T) {
	t.Parallel()

	db := newMemDB(t)
	ctx := context.Background()

	n, err := db.CopyFrom(ctx, []string{"guid"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = db.CopyFrom(ctx, nil, [][]any{{"g1"}})
	assert.ErrorContains(t, err, "columns must not be empty")

	_, err = db.CopyFrom(ctx, []string{"guid", "zip_code"}, [][]any{{"g1"}})
	assert.ErrorContains(t, err, "row 0 length 1 != columns length 2")

	_, err = db.CopyFrom(ctx, []string{"nope"}, [][]any{{"g1"}})
	assert.ErrorContains(t, err, "sqlite: insert:")
}

func TestExec(t *testing.T) {
	t.Parallel()

	db := newMemDB(t)
	assert.NoError(t, db.Exec(context.Background(), "   "))
	assert.ErrorContains(t, db.Exec(context.Background(), "NOT SQL"), "sqlite: exec:")
}

func countRows(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.X.GetContext(context.Background(), &n, `SELECT COUNT(*) FROM housing`))
	return n
}

func TestTx_RollbackDiscardsEveryBatch(t *testing.T) {
	t.Parallel()

	db := newMemDB(t)
	ctx := context.Background()
	cols := []string{"guid", "zip_code"}

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	n, err := tx.CopyFrom(ctx, cols, [][]any{{"g1", "90000"}, {"g2", "90000"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, err = tx.CopyFrom(ctx, cols, [][]any{{"g3", "10000"}})
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(ctx))
	assert.Zero(t, countRows(t, db))
	assert.NoError(t, tx.Rollback(ctx), "second rollback is a no-op")
}

func TestTx_CommitPublishesEveryBatch(t *testing.T) {
	t.Parallel()

	db := newMemDB(t)
	ctx := context.Background()
	cols := []string{"guid", "zip_code"}

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	for _, g := range []string{"g1", "g2", "g3"} {
		_, err := tx.CopyFrom(ctx, cols, [][]any{{g, "90000"}})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")
	assert.Equal(t, 3, countRows(t, db))

	assert.ErrorContains(t, tx.Commit(ctx), "sqlite: commit:")
}

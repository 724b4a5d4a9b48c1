package storage

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	// goqu dialects for every supported backend.
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver"
)

// GoquDialect maps a storage kind to its goqu dialect name.
func GoquDialect(kind string) string {
	switch kind {
	case "sqlite":
		return "sqlite3"
	case "mssql":
		return "sqlserver"
	}
	return kind
}

// SumBedroomsAboveSQL builds
//
//	SELECT COALESCE(SUM(total_bedrooms), 0) FROM <table> WHERE total_bedrooms > ?
//
// with dialect placeholders.
func SumBedroomsAboveSQL(kind, table string, threshold int64) (string, []any, error) {
	sum := goqu.COALESCE(goqu.SUM("total_bedrooms"), 0)
	var sel any = sum
	if kind == "postgres" {
		// SUM(bigint) is numeric in postgres.
		sel = goqu.Cast(sum, "BIGINT")
	}
	return goqu.Dialect(GoquDialect(kind)).
		From(table).
		Select(sel).
		Where(goqu.C("total_bedrooms").Gt(threshold)).
		Prepared(true).
		ToSQL()
}

// AvgIncomeForZipSQL builds
//
//	SELECT AVG(median_income) FROM <table> WHERE zip_code = ?
//
// with dialect placeholders. The result is NULL when no row matches.
func AvgIncomeForZipSQL(kind, table, zip string) (string, []any, error) {
	avg := goqu.AVG(goqu.Cast(goqu.C("median_income"), floatType(kind)))
	return goqu.Dialect(GoquDialect(kind)).
		From(table).
		Select(avg).
		Where(goqu.C("zip_code").Eq(zip)).
		Prepared(true).
		ToSQL()
}

// floatType keeps AVG from truncating to an integer on backends that
// average integers as integers.
func floatType(kind string) string {
	switch kind {
	case "mysql":
		return "DOUBLE"
	case "mssql":
		return "FLOAT"
	}
	return "DOUBLE PRECISION"
}

// InsertSQL builds one multi-row INSERT for rows aligned to columns.
func InsertSQL(kind, table string, columns []string, rows [][]any) (string, []any, error) {
	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = c
	}
	return goqu.Dialect(GoquDialect(kind)).
		Insert(table).
		Cols(cols...).
		Vals(rows...).
		Prepared(true).
		ToSQL()
}

// OpenQuerier opens the repository for cfg and returns its Querier view.
// Query failures come back as *PersistenceError with Op "query".
func OpenQuerier(ctx context.Context, cfg Config) (Querier, func(), error) {
	repo, err := New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	q, ok := repo.(Querier)
	if !ok {
		repo.Close()
		return nil, nil, &PersistenceError{Op: "query", Kind: cfg.Kind, Table: cfg.Table,
			Err: fmt.Errorf("backend %T does not support aggregate queries", repo)}
	}
	return wrappedQuerier{q: q, cfg: cfg}, repo.Close, nil
}

type wrappedQuerier struct {
	q   Querier
	cfg Config
}

func (w wrappedQuerier) SumBedroomsAbove(ctx context.Context, threshold int64) (int64, error) {
	n, err := w.q.SumBedroomsAbove(ctx, threshold)
	if err != nil {
		return 0, &PersistenceError{Op: "query", Kind: w.cfg.Kind, Table: w.cfg.Table, Err: err}
	}
	return n, nil
}

func (w wrappedQuerier) AvgIncomeForZip(ctx context.Context, zip string) (float64, bool, error) {
	avg, ok, err := w.q.AvgIncomeForZip(ctx, zip)
	if err != nil {
		return 0, false, &PersistenceError{Op: "query", Kind: w.cfg.Kind, Table: w.cfg.Table, Err: err}
	}
	return avg, ok, nil
}

package storage

import (
	"context"
	"fmt"
	"sync"

	"housingetl/internal/ddl"
)

var (
	ddlMu       sync.RWMutex
	ddlDialects = map[string]ddl.Dialect{}
)

// RegisterDDL registers (or replaces) the DDL dialect for a storage kind.
// Backends call it from init next to Register.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlDialects[kind] = d
}

// DialectFor returns the DDL dialect registered for kind.
func DialectFor(kind string) (ddl.Dialect, bool) {
	ddlMu.RLock()
	defer ddlMu.RUnlock()
	d, ok := ddlDialects[kind]
	return d, ok
}

// EnsureTable creates cfg.Table with the HousingTable layout restricted to
// cfg.Columns, unless it already exists.
func EnsureTable(ctx context.Context, cfg Config, repo Repository) error {
	d, ok := DialectFor(cfg.Kind)
	if !ok {
		return fmt.Errorf("no DDL dialect registered for storage.kind=%q", cfg.Kind)
	}
	td, err := HousingTable.Select(cfg.Columns)
	if err != nil {
		return err
	}
	td.FQN = cfg.Table
	stmt, err := ddl.BuildCreateTableSQL(td, d)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}

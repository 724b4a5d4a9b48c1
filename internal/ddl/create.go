// Package ddl defines a small, backend-agnostic model for SQL DDL and the
// per-dialect rules used to render CREATE TABLE statements from it.
//
// Each storage backend registers one Dialect; the model itself never assumes
// a particular database.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect holds the rendering rules of one SQL flavor.
type Dialect struct {
	// Name is the storage kind the dialect belongs to, e.g. "postgres".
	Name string

	// Quote quotes one identifier segment.
	Quote func(string) string

	// Types maps logical column types to SQL types.
	Types map[ColumnType]string

	// IfNotExists wraps a CREATE TABLE statement so it is a no-op when the
	// table exists. fqn is the unquoted table name.
	IfNotExists func(fqn, create string) string
}

// QuoteFQN quotes each dot-separated segment of name.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, ".")
}

// BuildCreateTableSQL renders an idempotent CREATE TABLE statement for t.
//
// Rules:
//   - t.FQN must be non-empty and t must have at least one column.
//   - Each column must have a non-empty Name and a Type known to d.
//   - A column is rendered as <quoted name> <SQL type> [NOT NULL].
//     Primary-key columns are always NOT NULL.
//   - Primary-key columns are collected into a trailing PRIMARY KEY clause in
//     column order.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ, ok := d.Types[c.Type]
		if !ok {
			return "", fmt.Errorf("%s ddl: column %s has unsupported type %s", d.Name, name, c.Type)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteFQN(fqn), strings.Join(cols, ",\n  "))
	if d.IfNotExists == nil {
		return create, nil
	}
	return d.IfNotExists(fqn, create), nil
}

func doubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func backtick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func bracket(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func createIfNotExists(_ string, create string) string {
	return strings.Replace(create, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1)
}

// Built-in dialects.
var (
	SQLite = Dialect{
		Name:        "sqlite",
		Quote:       doubleQuote,
		Types:       map[ColumnType]string{Text: "TEXT", Integer: "INTEGER"},
		IfNotExists: createIfNotExists,
	}
	Postgres = Dialect{
		Name:        "postgres",
		Quote:       doubleQuote,
		Types:       map[ColumnType]string{Text: "TEXT", Integer: "BIGINT"},
		IfNotExists: createIfNotExists,
	}
	MySQL = Dialect{
		Name:        "mysql",
		Quote:       backtick,
		Types:       map[ColumnType]string{Text: "VARCHAR(255)", Integer: "BIGINT"},
		IfNotExists: createIfNotExists,
	}
	MSSQL = Dialect{
		Name:  "mssql",
		Quote: bracket,
		Types: map[ColumnType]string{Text: "NVARCHAR(255)", Integer: "BIGINT"},
		IfNotExists: func(fqn, create string) string {
			return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", strings.ReplaceAll(fqn, "'", "''"), create)
		},
	}
)

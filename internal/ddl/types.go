package ddl

// ColumnType is the logical type of a column. Dialects map it to a concrete
// SQL type.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
)

func (t ColumnType) String() string {
	switch t {
	case Text:
		return "text"
	case Integer:
		return "integer"
	}
	return "unknown"
}

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Type: logical type, rendered through Dialect.Types
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name and an ordered list of columns. FQN may be
// dotted ("schema.table"); each segment is quoted separately.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Select returns a copy of t restricted to names, in the order given. It
// reports the first name t does not define.
func (t TableDef) Select(names []string) (TableDef, error) {
	if len(names) == 0 {
		return TableDef{FQN: t.FQN, Columns: append([]ColumnDef(nil), t.Columns...)}, nil
	}
	byName := make(map[string]ColumnDef, len(t.Columns))
	for _, c := range t.Columns {
		byName[c.Name] = c
	}
	out := TableDef{FQN: t.FQN, Columns: make([]ColumnDef, 0, len(names))}
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return TableDef{}, &UnknownColumnError{Table: t.FQN, Column: n}
		}
		out.Columns = append(out.Columns, c)
	}
	return out, nil
}

// UnknownColumnError reports a column name missing from a TableDef.
type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return "ddl: table " + e.Table + " has no column " + e.Column
}

// Package records defines the in-memory row model shared by the parser,
// the repair steps, the merger and the storage sink.
//
// A Record is a loosely typed field map. Values coming out of the parser are
// strings, or nil for empty cells; they only become domain typed (int64 and
// friends) at the storage boundary.
package records

// Record is a single row keyed by canonical column name.
type Record map[string]any

// Clone returns a shallow copy of r. Values are immutable scalars in
// practice, so a shallow copy is enough to edit the clone independently.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value for key when it is a string. ok is false for
// missing keys, nil values and non-string values.
func (r Record) String(key string) (string, bool) {
	v, exists := r[key]
	if !exists || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Dataset is an ordered sequence of records sharing one declared schema.
type Dataset struct {
	// Name identifies the source, e.g. "housing", "income" or "zip".
	Name string

	// Columns is the declared schema in source order.
	Columns []string

	// Rows holds the records in scan order.
	Rows []Record
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Rows) }

// HasColumn reports whether col is part of the declared schema.
func (d Dataset) HasColumn(col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the dataset: a fresh column slice and a
// cloned record per row.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Name:    d.Name,
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([]Record, len(d.Rows)),
	}
	for i, r := range d.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// WithRows returns a dataset with the same name and schema but the given rows.
func (d Dataset) WithRows(rows []Record) Dataset {
	return Dataset{
		Name:    d.Name,
		Columns: append([]string(nil), d.Columns...),
		Rows:    rows,
	}
}

// Column returns the values of col in row order. Missing values are nil.
func (d Dataset) Column(col string) []any {
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[col]
	}
	return out
}

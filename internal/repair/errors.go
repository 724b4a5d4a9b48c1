package repair

import (
	"fmt"
	"strconv"
	"strings"
)

// Failure is implemented by every typed error in this package so callers
// can report an error class and the offending record without switching on
// concrete types.
type Failure interface {
	error
	Class() string
	Record() string
}

// UnresolvedZipError reports a corrupt zip whose city/state key has no entry
// in the GoodZipIndex.
type UnresolvedZipError struct {
	Dataset string
	Row     int
	GUID    string
	City    string
	State   string
}

func (e *UnresolvedZipError) Error() string {
	return fmt.Sprintf("repair: %s row %d (guid=%q): no valid zip for city/state %q/%q",
		e.Dataset, e.Row, e.GUID, e.City, e.State)
}

func (e *UnresolvedZipError) Class() string  { return "unresolved_zip_reference" }
func (e *UnresolvedZipError) Record() string { return recordID(e.GUID, e.Row) }

// SchemaMismatchError reports a column a step needs that the dataset does
// not declare.
type SchemaMismatchError struct {
	Dataset string
	Column  string
	Step    string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("repair: %s: dataset %q has no column %q", e.Step, e.Dataset, e.Column)
}

func (e *SchemaMismatchError) Class() string  { return "schema_mismatch" }
func (e *SchemaMismatchError) Record() string { return e.Dataset + "." + e.Column }

// AlignmentError reports that a target dataset and the zip reference do not
// line up during positional propagation: either the row counts differ, or
// row Row carries a different key in each dataset.
type AlignmentError struct {
	Dataset   string
	Reference string
	Want      int
	Got       int

	// Set on an order mismatch; Row is -1 for a count mismatch.
	Row          int
	Key          string
	ReferenceKey string
}

func (e *AlignmentError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("repair: positional zip propagation: row %d of %s is %q, %s has %q",
			e.Row, e.Dataset, e.Key, e.Reference, e.ReferenceKey)
	}
	return fmt.Sprintf("repair: positional zip propagation: %s has %d rows, %s has %d",
		e.Dataset, e.Got, e.Reference, e.Want)
}

func (e *AlignmentError) Class() string { return "alignment_violation" }

func (e *AlignmentError) Record() string {
	if e.Row >= 0 && e.Key != "" {
		return e.Key
	}
	return e.Dataset
}

// ResidualCorruptionError reports corrupt values that survived every repair
// step.
type ResidualCorruptionError struct {
	Dataset string
	Cells   []Residual
}

func (e *ResidualCorruptionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "repair: %s: %d corrupt value(s) left after repair", e.Dataset, len(e.Cells))
	for i, c := range e.Cells {
		if i == 3 {
			b.WriteString(" ...")
			break
		}
		fmt.Fprintf(&b, "; row %d %s=%q", c.Row, c.Column, c.Value)
	}
	return b.String()
}

func (e *ResidualCorruptionError) Class() string { return "residual_corruption" }

func (e *ResidualCorruptionError) Record() string {
	if len(e.Cells) == 0 {
		return e.Dataset
	}
	return recordID(e.Cells[0].Key, e.Cells[0].Row)
}

// RangeError reports an empty random-fill range.
type RangeError struct {
	Column string
	Low    int
	High   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("repair: column %q: empty range [%d, %d)", e.Column, e.Low, e.High)
}

func (e *RangeError) Class() string  { return "invalid_range" }
func (e *RangeError) Record() string { return e.Column }

func recordID(guid string, row int) string {
	if guid != "" {
		return guid
	}
	return "row:" + strconv.Itoa(row)
}

var (
	_ Failure = (*UnresolvedZipError)(nil)
	_ Failure = (*SchemaMismatchError)(nil)
	_ Failure = (*AlignmentError)(nil)
	_ Failure = (*ResidualCorruptionError)(nil)
	_ Failure = (*RangeError)(nil)
)

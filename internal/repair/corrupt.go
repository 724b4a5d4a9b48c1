// Package repair holds the data-repair and reconciliation steps that run
// between parsing and merging: the corruption rule, key-row filtering,
// random fill of numeric columns and city/state zip reconciliation.
//
// Every step is a transform: it takes a records.Dataset and returns a new
// one, leaving its input untouched. Steps report what they changed as a slice
// of Event values and fail with the typed errors in errors.go.
package repair

import (
	"regexp"

	"housingetl/pkg/records"
)

// Pattern is the sentinel shape the upstream extracts use for bad data:
// exactly four uppercase ASCII letters and nothing else.
const Pattern = `^[A-Z]{4}$`

var corruptRe = regexp.MustCompile(Pattern)

// IsCorrupt reports whether value is a corruption sentinel.
func IsCorrupt(value string) bool {
	return corruptRe.MatchString(value)
}

// IsCorruptValue applies IsCorrupt to string values. nil and non-string
// values are never corrupt.
func IsCorruptValue(v any) bool {
	s, ok := v.(string)
	return ok && IsCorrupt(s)
}

// Residual is a corrupt value found after all repairs ran.
type Residual struct {
	Row    int
	Key    string
	Column string
	Value  string
}

// FindResidual scans every declared column of ds and returns the cells that
// still match Pattern. keyColumn names the column used to identify rows in
// the result; it may be empty.
func FindResidual(ds records.Dataset, keyColumn string) []Residual {
	var out []Residual
	for i, r := range ds.Rows {
		for _, col := range ds.Columns {
			if !IsCorruptValue(r[col]) {
				continue
			}
			key, _ := r.String(keyColumn)
			out = append(out, Residual{Row: i, Key: key, Column: col, Value: r[col].(string)})
		}
	}
	return out
}

package repair

import "housingetl/pkg/records"

// Reasons attached to Events.
const (
	ReasonCorruptKeyDropped = "corrupt_key_dropped"
	ReasonRandomFill        = "random_fill"
	ReasonZipReconciled     = "zip_reconciled"
	ReasonZipPropagated     = "zip_propagated"
)

// Event records a single change made by a repair step.
type Event struct {
	Dataset  string
	Row      int    // index in the step's input dataset
	Key      string // key column value, when known
	Column   string
	Original any
	Value    any // nil when the row was dropped
	Reason   string
}

// CountByReason tallies events per reason.
func CountByReason(events []Event) map[string]int {
	out := make(map[string]int)
	for _, e := range events {
		out[e.Reason]++
	}
	return out
}

// RequireColumns returns a SchemaMismatchError for the first column of cols
// that ds does not declare.
func RequireColumns(ds records.Dataset, step string, cols ...string) error {
	for _, c := range cols {
		if !ds.HasColumn(c) {
			return &SchemaMismatchError{Dataset: ds.Name, Column: c, Step: step}
		}
	}
	return nil
}

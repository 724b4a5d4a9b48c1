package repair

import "housingetl/pkg/records"

// FilterCorruptKeyRows returns a dataset holding only the rows whose
// keyColumn value is not corrupt. Survivors keep their relative order. A
// corrupt identifier cannot be repaired, so its row is dropped and reported
// as an Event.
func FilterCorruptKeyRows(ds records.Dataset, keyColumn string) (records.Dataset, []Event, error) {
	if err := RequireColumns(ds, "filter corrupt keys", keyColumn); err != nil {
		return records.Dataset{}, nil, err
	}

	kept := make([]records.Record, 0, len(ds.Rows))
	var events []Event
	for i, r := range ds.Rows {
		s, ok := r.String(keyColumn)
		if ok && IsCorrupt(s) {
			events = append(events, Event{
				Dataset:  ds.Name,
				Row:      i,
				Key:      s,
				Column:   keyColumn,
				Original: s,
				Reason:   ReasonCorruptKeyDropped,
			})
			continue
		}
		kept = append(kept, r)
	}
	return ds.WithRows(kept), events, nil
}

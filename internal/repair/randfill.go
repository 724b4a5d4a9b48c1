package repair

import (
	"strconv"

	"housingetl/pkg/records"
)

// Rand is the randomness capability RandomFill draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	// IntN returns a uniform value in [0, n). n is always > 0.
	IntN(n int) int
}

// RandomFill replaces corrupt values in one column with a uniformly sampled
// integer from [Low, High).
type RandomFill struct {
	Column string
	Low    int
	High   int
	Rand   Rand

	// KeyColumn optionally names the column copied into Event.Key.
	KeyColumn string
}

// Apply returns a copy of ds in which every corrupt cell of Column holds the
// decimal rendering of a fresh sample. Each corrupt cell is sampled
// independently; all other cells are carried over unchanged.
func (f RandomFill) Apply(ds records.Dataset) (records.Dataset, []Event, error) {
	if err := RequireColumns(ds, "random fill", f.Column); err != nil {
		return records.Dataset{}, nil, err
	}
	if f.High <= f.Low {
		return records.Dataset{}, nil, &RangeError{Column: f.Column, Low: f.Low, High: f.High}
	}

	span := f.High - f.Low
	out := ds.WithRows(make([]records.Record, len(ds.Rows)))
	var events []Event
	for i, r := range ds.Rows {
		s, ok := r.String(f.Column)
		if !ok || !IsCorrupt(s) {
			out.Rows[i] = r
			continue
		}
		nr := r.Clone()
		v := strconv.Itoa(f.Low + f.Rand.IntN(span))
		nr[f.Column] = v
		out.Rows[i] = nr

		key, _ := r.String(f.KeyColumn)
		events = append(events, Event{
			Dataset:  ds.Name,
			Row:      i,
			Key:      key,
			Column:   f.Column,
			Original: s,
			Value:    v,
			Reason:   ReasonRandomFill,
		})
	}
	return out, events, nil
}

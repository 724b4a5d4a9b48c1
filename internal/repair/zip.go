package repair

import (
	"unicode/utf8"

	"housingetl/pkg/records"
)

// ZipColumns names the columns the zip reconciliation reads.
type ZipColumns struct {
	Key   string // row identifier, e.g. "guid"
	Zip   string
	City  string
	State string
}

// DefaultZipColumns matches the housing/income/zip extracts.
var DefaultZipColumns = ZipColumns{Key: "guid", Zip: "zip_code", City: "city", State: "state"}

// CityStateKey is the lookup key of a GoodZipIndex.
type CityStateKey string

// KeyFor builds the city/state key of r. Missing values contribute "".
func KeyFor(r records.Record, cols ZipColumns) CityStateKey {
	city, _ := r.String(cols.City)
	state, _ := r.String(cols.State)
	return CityStateKey(city + state)
}

// GoodZipIndex maps a city/state pair to a representative zip stub.
type GoodZipIndex map[CityStateKey]string

// Lookup returns the stub for key.
func (idx GoodZipIndex) Lookup(key CityStateKey) (string, bool) {
	z, ok := idx[key]
	return z, ok
}

// stub keeps the leading character of zip and zeroes the rest:
// "90001" -> "90000". The leading character is a whole rune, never a byte.
func stub(zip string) string {
	_, size := utf8.DecodeRuneInString(zip)
	return zip[:size] + "0000"
}

// BuildGoodZipIndex scans ds and indexes every row whose zip is present and
// not corrupt. Later rows overwrite earlier rows sharing a city/state key.
// Corrupt rows never contribute.
func BuildGoodZipIndex(ds records.Dataset, cols ZipColumns) (GoodZipIndex, error) {
	if err := RequireColumns(ds, "build zip index", cols.Zip, cols.City, cols.State); err != nil {
		return nil, err
	}
	idx := make(GoodZipIndex)
	for _, r := range ds.Rows {
		zip, ok := r.String(cols.Zip)
		if !ok || zip == "" || IsCorrupt(zip) {
			continue
		}
		idx[KeyFor(r, cols)] = stub(zip)
	}
	return idx, nil
}

// ReconcileZips repairs every corrupt zip of the reference dataset ds with
// the stub of a valid row sharing its city and state. It returns the
// repaired dataset together with the index it used, so callers can repair
// other datasets against the same reference.
//
// A corrupt row whose key has no valid sample fails the whole call with an
// *UnresolvedZipError; no zip is ever invented.
func ReconcileZips(ds records.Dataset, cols ZipColumns) (records.Dataset, GoodZipIndex, []Event, error) {
	idx, err := BuildGoodZipIndex(ds, cols)
	if err != nil {
		return records.Dataset{}, nil, nil, err
	}

	out := ds.WithRows(make([]records.Record, len(ds.Rows)))
	var events []Event
	for i, r := range ds.Rows {
		zip, ok := r.String(cols.Zip)
		if !ok || !IsCorrupt(zip) {
			out.Rows[i] = r
			continue
		}
		key := KeyFor(r, cols)
		repl, found := idx.Lookup(key)
		if !found {
			return records.Dataset{}, nil, nil, unresolved(ds.Name, i, r, cols)
		}
		nr := r.Clone()
		nr[cols.Zip] = repl
		out.Rows[i] = nr
		events = append(events, zipEvent(ds.Name, i, r, cols, zip, repl, ReasonZipReconciled))
	}
	return out, idx, events, nil
}

// PropagateZips copies the reconciled zip of each reference row into the
// target rows sharing its key (guid). Target rows without a reference match
// keep their own zip when it is valid; a corrupt one is repaired through idx
// when the target declares city and state, and fails with an
// *UnresolvedZipError otherwise.
//
// Rows are matched by key rather than position, so the target and the
// reference may differ in length and order.
func PropagateZips(target, reference records.Dataset, idx GoodZipIndex, cols ZipColumns) (records.Dataset, []Event, error) {
	if err := RequireColumns(target, "propagate zips", cols.Key, cols.Zip); err != nil {
		return records.Dataset{}, nil, err
	}
	if err := RequireColumns(reference, "propagate zips", cols.Key, cols.Zip); err != nil {
		return records.Dataset{}, nil, err
	}

	byKey := make(map[string]string, len(reference.Rows))
	for _, r := range reference.Rows {
		k, ok := r.String(cols.Key)
		if !ok {
			continue
		}
		if z, ok := r.String(cols.Zip); ok {
			byKey[k] = z
		}
	}
	canLookup := target.HasColumn(cols.City) && target.HasColumn(cols.State)

	out := target.WithRows(make([]records.Record, len(target.Rows)))
	var events []Event
	for i, r := range target.Rows {
		cur, _ := r.String(cols.Zip)
		k, _ := r.String(cols.Key)

		repl, matched := byKey[k]
		if !matched {
			if !IsCorrupt(cur) {
				out.Rows[i] = r
				continue
			}
			var found bool
			if canLookup {
				repl, found = idx.Lookup(KeyFor(r, cols))
			}
			if !found {
				return records.Dataset{}, nil, unresolved(target.Name, i, r, cols)
			}
		}
		if repl == cur {
			out.Rows[i] = r
			continue
		}
		nr := r.Clone()
		nr[cols.Zip] = repl
		out.Rows[i] = nr
		events = append(events, zipEvent(target.Name, i, r, cols, r[cols.Zip], repl, ReasonZipPropagated))
	}
	return out, events, nil
}

// PropagateZipsPositional overwrites the zip column of target with the zip
// column of reference row by row. Both datasets must have the same length
// and, when both declare the key column, the same key at every row. Either
// mismatch is an *AlignmentError; nothing is truncated, padded or reordered.
func PropagateZipsPositional(target, reference records.Dataset, cols ZipColumns) (records.Dataset, []Event, error) {
	if err := RequireColumns(target, "propagate zips", cols.Zip); err != nil {
		return records.Dataset{}, nil, err
	}
	if err := RequireColumns(reference, "propagate zips", cols.Zip); err != nil {
		return records.Dataset{}, nil, err
	}
	if len(target.Rows) != len(reference.Rows) {
		return records.Dataset{}, nil, &AlignmentError{
			Dataset:   target.Name,
			Reference: reference.Name,
			Want:      len(reference.Rows),
			Got:       len(target.Rows),
			Row:       -1,
		}
	}
	if err := checkOrder(target, reference, cols); err != nil {
		return records.Dataset{}, nil, err
	}

	out := target.WithRows(make([]records.Record, len(target.Rows)))
	var events []Event
	for i, r := range target.Rows {
		repl := reference.Rows[i][cols.Zip]
		if r[cols.Zip] == repl {
			out.Rows[i] = r
			continue
		}
		nr := r.Clone()
		nr[cols.Zip] = repl
		out.Rows[i] = nr
		events = append(events, zipEvent(target.Name, i, r, cols, r[cols.Zip], repl, ReasonZipPropagated))
	}
	return out, events, nil
}

// checkOrder compares the key of every row pair. Datasets that do not both
// declare the key column are taken as aligned by count alone.
func checkOrder(target, reference records.Dataset, cols ZipColumns) error {
	if cols.Key == "" || !target.HasColumn(cols.Key) || !reference.HasColumn(cols.Key) {
		return nil
	}
	for i := range target.Rows {
		got, _ := target.Rows[i].String(cols.Key)
		want, _ := reference.Rows[i].String(cols.Key)
		if got != want {
			return &AlignmentError{
				Dataset:      target.Name,
				Reference:    reference.Name,
				Want:         len(reference.Rows),
				Got:          len(target.Rows),
				Row:          i,
				Key:          got,
				ReferenceKey: want,
			}
		}
	}
	return nil
}

func unresolved(dataset string, row int, r records.Record, cols ZipColumns) *UnresolvedZipError {
	guid, _ := r.String(cols.Key)
	city, _ := r.String(cols.City)
	state, _ := r.String(cols.State)
	return &UnresolvedZipError{Dataset: dataset, Row: row, GUID: guid, City: city, State: state}
}

func zipEvent(dataset string, row int, r records.Record, cols ZipColumns, orig, repl any, reason string) Event {
	key, _ := r.String(cols.Key)
	return Event{
		Dataset:  dataset,
		Row:      row,
		Key:      key,
		Column:   cols.Zip,
		Original: orig,
		Value:    repl,
		Reason:   reason,
	}
}

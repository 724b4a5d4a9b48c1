package repair

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingetl/pkg/records"
)

var zipCols = []string{"guid", "zip_code", "city", "state"}

func zipRef(rows ...records.Record) records.Dataset {
	return records.Dataset{Name: "zip", Columns: zipCols, Rows: rows}
}

func row(guid, zip, city, state string) records.Record {
	return records.Record{"guid": guid, "zip_code": zip, "city": city, "state": state}
}

func TestBuildGoodZipIndex(t *testing.T) {
	t.Parallel()

	ds := zipRef(
		row("g1", "90001", "LA", "CA"),
		row("g2", "ABCD", "SF", "CA"),
		row("g3", "10001", "NYC", "NY"),
		row("g4", "30301", "LA", "CA"), // later sample wins
		records.Record{"guid": "g5", "zip_code": nil, "city": "Austin", "state": "TX"},
	)

	idx, err := BuildGoodZipIndex(ds, DefaultZipColumns)
	require.NoError(t, err)
	assert.Equal(t, GoodZipIndex{"LACA": "30000", "NYCNY": "10000"}, idx)
}

func TestBuildGoodZipIndex_MultiByteLeadingCharacter(t *testing.T) {
	t.Parallel()

	ds := zipRef(
		row("g1", "９0001", "Tokyo", "JP"),
		row("g2", "é1234", "Lyon", "FR"),
		row("g3", "90001", "LA", "CA"),
	)

	idx, err := BuildGoodZipIndex(ds, DefaultZipColumns)
	require.NoError(t, err)
	assert.Equal(t, GoodZipIndex{"TokyoJP": "９0000", "LyonFR": "é0000", "LACA": "90000"}, idx)
	for k, z := range idx {
		assert.True(t, utf8.ValidString(z), "stub for %s is not valid UTF-8: %q", k, z)
	}
}

func TestReconcileZips_RepairsFromSameCityState(t *testing.T) {
	t.Parallel()

	ds := zipRef(
		row("g1", "90001", "LA", "CA"),
		row("g3", "ZZZZ", "LA", "CA"),
	)

	out, idx, events, err := ReconcileZips(ds, DefaultZipColumns)
	require.NoError(t, err)
	assert.Equal(t, "90001", out.Rows[0]["zip_code"])
	assert.Equal(t, "90000", out.Rows[1]["zip_code"])
	assert.Equal(t, "90000", idx["LACA"])

	require.Len(t, events, 1)
	assert.Equal(t, "g3", events[0].Key)
	assert.Equal(t, "ZZZZ", events[0].Original)
	assert.Equal(t, ReasonZipReconciled, events[0].Reason)

	assert.Equal(t, "ZZZZ", ds.Rows[1]["zip_code"], "input is not modified")
	assert.Empty(t, FindResidual(out, "guid"))
}

func TestReconcileZips_Unresolved(t *testing.T) {
	t.Parallel()

	ds := zipRef(
		row("g1", "90001", "LA", "CA"),
		row("g2", "ABCD", "Reno", "NV"),
		row("g3", "ABCD", "Reno", "NV"),
	)

	_, _, _, err := ReconcileZips(ds, DefaultZipColumns)
	require.Error(t, err)

	var uz *UnresolvedZipError
	require.True(t, errors.As(err, &uz))
	assert.Equal(t, 1, uz.Row)
	assert.Equal(t, "g2", uz.Record())
	assert.Equal(t, "Reno", uz.City)
	assert.Equal(t, "NV", uz.State)
	assert.Equal(t, "unresolved_zip_reference", uz.Class())
}

func TestReconcileZips_CorruptRowsNeverFeedTheIndex(t *testing.T) {
	t.Parallel()

	// Both LA rows are corrupt: the only candidate source is corrupt itself.
	ds := zipRef(
		row("g1", "ABCD", "LA", "CA"),
		row("g2", "WXYZ", "LA", "CA"),
	)
	_, _, _, err := ReconcileZips(ds, DefaultZipColumns)
	var uz *UnresolvedZipError
	require.True(t, errors.As(err, &uz))
}

func TestPropagateZips_ByGUID(t *testing.T) {
	t.Parallel()

	ref := zipRef(
		row("g1", "90001", "LA", "CA"),
		row("g3", "90000", "LA", "CA"),
	)
	idx := GoodZipIndex{"LACA": "90000"}

	income := records.Dataset{
		Name:    "income",
		Columns: []string{"guid", "zip_code", "median_income"},
		Rows: []records.Record{
			{"guid": "g3", "zip_code": "ABCD", "median_income": "1"},
			{"guid": "g9", "zip_code": "73301", "median_income": "2"}, // no reference row
			{"guid": "g1", "zip_code": "90001", "median_income": "3"},
		},
	}

	out, events, err := PropagateZips(income, ref, idx, DefaultZipColumns)
	require.NoError(t, err)
	assert.Equal(t, "90000", out.Rows[0]["zip_code"])
	assert.Equal(t, "73301", out.Rows[1]["zip_code"])
	assert.Equal(t, "90001", out.Rows[2]["zip_code"])
	require.Len(t, events, 1)
	assert.Equal(t, ReasonZipPropagated, events[0].Reason)
}

func TestPropagateZips_UnmatchedCorruptRow(t *testing.T) {
	t.Parallel()

	ref := zipRef(row("g1", "90001", "LA", "CA"))
	idx := GoodZipIndex{"LACA": "90000"}

	housing := records.Dataset{
		Name:    "housing",
		Columns: []string{"guid", "zip_code", "city", "state"},
		Rows:    []records.Record{row("g7", "ABCD", "LA", "CA")},
	}
	out, _, err := PropagateZips(housing, ref, idx, DefaultZipColumns)
	require.NoError(t, err)
	assert.Equal(t, "90000", out.Rows[0]["zip_code"], "falls back to the city/state index")

	income := records.Dataset{
		Name:    "income",
		Columns: []string{"guid", "zip_code"},
		Rows:    []records.Record{{"guid": "g7", "zip_code": "ABCD"}},
	}
	_, _, err = PropagateZips(income, ref, idx, DefaultZipColumns)
	var uz *UnresolvedZipError
	require.True(t, errors.As(err, &uz))
	assert.Equal(t, "income", uz.Dataset)
}

func TestPropagateZipsPositional(t *testing.T) {
	t.Parallel()

	ref := zipRef(row("g1", "90001", "LA", "CA"), row("g2", "90000", "LA", "CA"))
	target := records.Dataset{
		Name:    "income",
		Columns: []string{"guid", "zip_code"},
		Rows:    []records.Record{{"guid": "g1", "zip_code": "ABCD"}, {"guid": "g2", "zip_code": "11111"}},
	}

	out, events, err := PropagateZipsPositional(target, ref, DefaultZipColumns)
	require.NoError(t, err)
	assert.Equal(t, "90001", out.Rows[0]["zip_code"])
	assert.Equal(t, "90000", out.Rows[1]["zip_code"])
	assert.Len(t, events, 2)
	assert.Equal(t, "ABCD", target.Rows[0]["zip_code"], "input must not be modified")
}

func TestPropagateZipsPositional_CountMismatch(t *testing.T) {
	t.Parallel()

	ref := zipRef(row("g1", "90001", "LA", "CA"), row("g2", "90000", "LA", "CA"))
	target := records.Dataset{
		Name:    "income",
		Columns: []string{"guid", "zip_code"},
		Rows:    []records.Record{{"guid": "g1", "zip_code": "ABCD"}},
	}

	_, _, err := PropagateZipsPositional(target, ref, DefaultZipColumns)
	var ae *AlignmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 2, ae.Want)
	assert.Equal(t, 1, ae.Got)
	assert.Equal(t, -1, ae.Row)
	assert.Equal(t, "alignment_violation", ae.Class())
	assert.Equal(t, "income", ae.Record())
}

func TestPropagateZipsPositional_OrderMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ref    records.Dataset
		target []records.Record
		row    int
		key    string
		refKey string
	}{
		{
			name:   "unrelated keys",
			ref:    zipRef(row("g1", "90001", "LA", "CA"), row("g2", "90000", "LA", "CA")),
			target: []records.Record{{"guid": "x", "zip_code": "ABCD"}, {"guid": "y", "zip_code": "11111"}},
			row:    0,
			key:    "x",
			refKey: "g1",
		},
		{
			name:   "same count, one row differs",
			ref:    zipRef(row("g1", "90000", "LA", "CA"), row("g3", "73301", "Austin", "TX")),
			target: []records.Record{{"guid": "g2", "zip_code": "10001"}, {"guid": "g3", "zip_code": "73301"}},
			row:    0,
			key:    "g2",
			refKey: "g1",
		},
		{
			name:   "swapped rows",
			ref:    zipRef(row("g1", "90000", "LA", "CA"), row("g2", "10001", "NYC", "NY")),
			target: []records.Record{{"guid": "g2", "zip_code": "ABCD"}, {"guid": "g1", "zip_code": "ABCD"}},
			row:    0,
			key:    "g2",
			refKey: "g1",
		},
		{
			name: "mismatch after aligned prefix",
			ref: zipRef(
				row("g1", "90000", "LA", "CA"),
				row("g2", "10001", "NYC", "NY"),
				row("g3", "73301", "Austin", "TX"),
			),
			target: []records.Record{
				{"guid": "g1", "zip_code": "90000"},
				{"guid": "g2", "zip_code": "10001"},
				{"guid": "g4", "zip_code": "73301"},
			},
			row:    2,
			key:    "g4",
			refKey: "g3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target := records.Dataset{Name: "income", Columns: []string{"guid", "zip_code"}, Rows: tt.target}
			out, events, err := PropagateZipsPositional(target, tt.ref, DefaultZipColumns)
			require.Error(t, err)
			assert.Empty(t, out.Rows)
			assert.Empty(t, events)

			var ae *AlignmentError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.row, ae.Row)
			assert.Equal(t, tt.key, ae.Key)
			assert.Equal(t, tt.refKey, ae.ReferenceKey)
			assert.Equal(t, "income", ae.Dataset)
			assert.Equal(t, "zip", ae.Reference)
			assert.Equal(t, "alignment_violation", ae.Class())
			assert.Equal(t, tt.key, ae.Record())
			assert.Contains(t, err.Error(), tt.refKey)
		})
	}
}

func TestPropagateZipsPositional_NoKeyColumnAlignsByCount(t *testing.T) {
	t.Parallel()

	ref := zipRef(row("g1", "90001", "LA", "CA"), row("g2", "90000", "LA", "CA"))
	target := records.Dataset{
		Name:    "income",
		Columns: []string{"zip_code"},
		Rows:    []records.Record{{"zip_code": "ABCD"}, {"zip_code": "11111"}},
	}

	out, _, err := PropagateZipsPositional(target, ref, DefaultZipColumns)
	require.NoError(t, err)
	assert.Equal(t, "90001", out.Rows[0]["zip_code"])
	assert.Equal(t, "90000", out.Rows[1]["zip_code"])
}

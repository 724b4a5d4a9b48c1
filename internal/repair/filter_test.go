package repair

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingetl/pkg/records"
)

func TestFilterCorruptKeyRows_DropsOneOfN(t *testing.T) {
	t.Parallel()

	ds := records.Dataset{
		Name:    "income",
		Columns: []string{"guid", "median_income"},
		Rows: []records.Record{
			{"guid": "a", "median_income": "1"},
			{"guid": "b", "median_income": "2"},
			{"guid": "ABCD", "median_income": "3"},
			{"guid": "c", "median_income": "4"},
			{"guid": "d", "median_income": "5"},
		},
	}

	out, events, err := FilterCorruptKeyRows(ds, "guid")
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())

	var got []string
	for _, r := range out.Rows {
		got = append(got, r["guid"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)

	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Row)
	assert.Equal(t, ReasonCorruptKeyDropped, events[0].Reason)
	assert.Nil(t, events[0].Value)

	assert.Equal(t, 5, ds.Len(), "input is not modified")
}

func TestFilterCorruptKeyRows_KeepsNearMisses(t *testing.T) {
	t.Parallel()

	ds := records.Dataset{
		Name:    "zip",
		Columns: []string{"guid"},
		Rows:    []records.Record{{"guid": "ABCDE"}, {"guid": "abcd"}, {"guid": nil}, {"guid": "AB12"}},
	}
	out, events, err := FilterCorruptKeyRows(ds, "guid")
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())
	assert.Empty(t, events)
}

func TestFilterCorruptKeyRows_MissingKeyColumn(t *testing.T) {
	t.Parallel()

	_, _, err := FilterCorruptKeyRows(records.Dataset{Name: "zip", Columns: []string{"id"}}, "guid")
	var sm *SchemaMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, "zip.guid", sm.Record())
}

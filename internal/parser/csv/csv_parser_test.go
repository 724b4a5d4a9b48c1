package csv_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingetl/internal/config"
	pcsv "housingetl/internal/parser/csv"
)

const housingCSV = "\uFEFFguid,zip_code,City,State,Housing Median Age\n" +
	"g1, 90001 ,LA,CA,41\n" +
	"g2,ABCD,LA,CA,\n" +
	"g3,10001,NYC,NY\n" + // short row
	"g4,10002,NYC,NY,7\n"

func TestParse_HeaderAndRows(t *testing.T) {
	t.Parallel()

	p := pcsv.NewParser(pcsv.Options{HasHeader: true, TrimSpace: true})
	ds, skipped, err := p.Parse(strings.NewReader(housingCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"guid", "zip_code", "city", "state", "housing_median_age"}, ds.Columns)
	assert.Equal(t, 1, skipped)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, "90001", ds.Rows[0]["zip_code"])
	assert.Equal(t, "ABCD", ds.Rows[1]["zip_code"])
	assert.Nil(t, ds.Rows[1]["housing_median_age"])
	assert.Equal(t, "g4", ds.Rows[2]["guid"])
}

func TestParse_OptionsFromConfig(t *testing.T) {
	t.Parallel()

	opt := pcsv.OptionsFrom(config.Options{
		"comma":      ";",
		"trim_space": false,
		"header_map": map[string]any{"psč": "zip_code"},
	})
	assert.True(t, opt.HasHeader)
	assert.Equal(t, ';', opt.Comma)

	ds, _, err := pcsv.NewParser(opt).Parse(strings.NewReader("guid;PSČ;Město\ng1; 12000;Praha\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"guid", "zip_code", "mesto"}, ds.Columns)
	assert.Equal(t, " 12000", ds.Rows[0]["zip_code"])
}

func TestParse_Encoding(t *testing.T) {
	t.Parallel()

	// "Bogotá" in windows-1252: 0xE1 is á.
	in := bytes.NewReader([]byte("guid,city\ng1,Bogot\xe1\n"))
	ds, _, err := pcsv.NewParser(pcsv.Options{HasHeader: true, Encoding: "windows-1252"}).Parse(in)
	require.NoError(t, err)
	assert.Equal(t, "Bogotá", ds.Rows[0]["city"])

	_, _, err = pcsv.NewParser(pcsv.Options{HasHeader: true, Encoding: "klingon"}).Parse(in)
	require.Error(t, err)
}

func TestParse_NoHeader(t *testing.T) {
	t.Parallel()

	ds, _, err := pcsv.NewParser(pcsv.Options{ExpectedFields: 2}).Parse(strings.NewReader("a,b\nc,d\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"col_0", "col_1"}, ds.Columns)
	assert.Equal(t, 2, ds.Len())
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := pcsv.NewParser(pcsv.Options{HasHeader: true}).Parse(strings.NewReader(""))
	require.Error(t, err)

	_, _, err = pcsv.NewParser(pcsv.Options{HasHeader: true, ExpectedFields: 3}).Parse(strings.NewReader("a,b\n1,2\n"))
	require.Error(t, err)
}

func TestParse_DuplicateHeaders(t *testing.T) {
	t.Parallel()

	ds, _, err := pcsv.NewParser(pcsv.Options{HasHeader: true}).Parse(strings.NewReader("guid,Guid,\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"guid", "col_1", "col_2"}, ds.Columns)
}

// Package csv implements the CSV parser for the housing, income and zip
// extracts. It decodes legacy charsets on the fly, normalizes header names
// into canonical snake_case keys, and soft-fails rows it cannot read.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"housingetl/internal/config"
	"housingetl/pkg/records"
)

// Options configures the CSV parser behavior. All fields are optional; sensible
// defaults are applied when a field is zero.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// ExpectedFields, when > 0, enforces a fixed field count per record. Rows
	// with a different width are skipped (soft-fail) and counted.
	ExpectedFields int

	// HeaderMap maps source header names to canonical keys. Lookups try the
	// raw header first and then its lowercase form.
	HeaderMap map[string]string

	// Encoding is a WHATWG charset label ("windows-1252", "latin1", ...).
	// Empty means UTF-8.
	Encoding string
}

// OptionsFrom reads parser options from a pipeline's free-form options map.
func OptionsFrom(o config.Options) Options {
	return Options{
		HasHeader:      o.Bool("has_header", true),
		Comma:          o.Rune("comma", ','),
		TrimSpace:      o.Bool("trim_space", true),
		ExpectedFields: o.Int("expected_fields", 0),
		HeaderMap:      o.StringMap("header_map"),
		Encoding:       o.String("encoding", ""),
	}
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// skipLogLimit caps the per-row skip messages for one input.
const skipLogLimit = 50

// Parse consumes CSV records from r and returns them as a dataset along with
// the number of rows that were skipped due to parse errors or field-count
// mismatches. The dataset name is left empty for the caller to set.
func (p *Parser) Parse(r io.Reader) (records.Dataset, int, error) {
	if p.opt.Encoding != "" {
		enc, err := htmlindex.Get(p.opt.Encoding)
		if err != nil {
			return records.Dataset{}, 0, fmt.Errorf("csv: encoding %q: %w", p.opt.Encoding, err)
		}
		r = enc.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if err == io.EOF {
			return records.Dataset{}, 0, fmt.Errorf("csv: empty input: missing header")
		}
		if err != nil {
			return records.Dataset{}, 0, fmt.Errorf("csv: read header: %w", err)
		}
		headers = normalizeHeaders(h, p.opt)
	} else if p.opt.ExpectedFields > 0 {
		headers = make([]string, p.opt.ExpectedFields)
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i)
		}
	}
	if p.opt.ExpectedFields > 0 && len(headers) != p.opt.ExpectedFields {
		return records.Dataset{}, 0, fmt.Errorf("csv: header has %d fields, expected %d", len(headers), p.opt.ExpectedFields)
	}

	var (
		out     []records.Record
		skipped int
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				log.Warn().Int("line", line).Err(err).Msg("csv: skipping row")
			}
			skipped++
			continue
		}

		if headers == nil {
			headers = make([]string, len(row))
			for i := range headers {
				headers[i] = fmt.Sprintf("col_%d", i)
			}
		}
		if len(row) != len(headers) {
			if skipped < skipLogLimit {
				log.Warn().Int("line", line).Int("want", len(headers)).Int("got", len(row)).
					Msg("csv: skipping row with wrong field count")
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[headers[i]] = emptyToNil(val)
		}
		out = append(out, rec)
	}

	return records.Dataset{Columns: headers, Rows: out}, skipped, nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders produces canonical header keys using HeaderMap (when
// provided) and simple normalization: diacritics folded, lowercase, spaces
// to underscores. It also strips a UTF-8 BOM from the first cell. Empty or
// repeated names are replaced with col_N so every column stays addressable.
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	seen := make(map[string]struct{}, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		name, ok := mapped(c, opt.HeaderMap)
		if !ok {
			name = strings.ReplaceAll(strings.ToLower(foldDiacritics(c)), " ", "_")
		}
		if _, dup := seen[name]; dup || name == "" {
			name = fmt.Sprintf("col_%d", i)
		}
		seen[name] = struct{}{}
		res[i] = name
	}
	return res
}

func mapped(header string, m map[string]string) (string, bool) {
	if len(m) == 0 {
		return "", false
	}
	if v, ok := m[header]; ok && v != "" {
		return v, true
	}
	if v, ok := m[strings.ToLower(header)]; ok && v != "" {
		return v, true
	}
	return "", false
}

// foldDiacritics strips combining marks: "Město" -> "Mesto".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

package builtin

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"housingetl/pkg/records"
)

// Coerce converts string values to typed values by field.
//
// Supported types: int (int64), float (float64), bool, date (time.Time parsed
// with Layout) and string. Values that do not parse are left untouched;
// callers that need strictness check the result with Unconverted.
type Coerce struct {
	Types  map[string]string // field -> int, float, bool, date, string
	Layout string            // date layout
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	if len(c.Types) == 0 {
		return in
	}
	out := make([]records.Record, len(in))
	for i, r := range in {
		var nr records.Record
		for field, typ := range c.Types {
			s, ok := r.String(field)
			if !ok {
				continue
			}
			v, ok := c.convert(typ, s)
			if !ok {
				continue
			}
			if nr == nil {
				nr = r.Clone()
			}
			nr[field] = v
		}
		if nr == nil {
			nr = r
		}
		out[i] = nr
	}
	return out
}

func (c Coerce) convert(typ, s string) (any, bool) {
	switch typ {
	case "int":
		return parseInt(s)
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	case "bool":
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		return b, err == nil
	case "date":
		t, err := time.Parse(c.Layout, strings.TrimSpace(s))
		return t, err == nil
	}
	return nil, false
}

// parseInt accepts plain integers and integral decimals such as "1500.0",
// which is how spreadsheet tools commonly export whole numbers.
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Unconverted lists, for each row, the fields that still hold a string after
// Apply although Types asks for something else. Fields typed "string" are
// never reported.
func (c Coerce) Unconverted(rows []records.Record) map[int][]string {
	bad := map[int][]string{}
	for i, r := range rows {
		for field, typ := range c.Types {
			if typ == "string" {
				continue
			}
			if _, ok := r.String(field); ok {
				bad[i] = append(bad[i], field)
			}
		}
		slices.Sort(bad[i])
	}
	return bad
}

// Package builtin provides the stock transformers.
package builtin

import (
	"strings"

	"housingetl/pkg/records"
)

// nbsp variants seen in spreadsheet exports: the raw rune and its
// latin-1-as-utf-8 mojibake.
var nbspReplacer = strings.NewReplacer("\u00c2\u00a0", " ", "\u00a0", " ")

// Normalize trims surrounding whitespace and replaces non-breaking spaces in
// every string value. Strings that end up empty become nil so blank cells
// look the same no matter how they were padded.
type Normalize struct{}

func (Normalize) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, len(in))
	for i, r := range in {
		var nr records.Record
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			clean := strings.TrimSpace(nbspReplacer.Replace(s))
			var nv any = clean
			if clean == "" {
				nv = nil
			}
			if clean == s && nv != nil {
				continue
			}
			if nr == nil {
				nr = r.Clone()
			}
			nr[k] = nv
		}
		if nr == nil {
			nr = r
		}
		out[i] = nr
	}
	return out
}

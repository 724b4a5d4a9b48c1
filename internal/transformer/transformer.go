// Package transformer holds row-level cleanup steps applied at the pipeline
// boundary: after parsing and before storage. A transformer never edits the
// rows it is given; it returns a new slice and clones any row it changes.
package transformer

import "housingetl/pkg/records"

type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// ApplyDataset runs t over the rows of ds and returns a dataset with the same
// name and schema.
func ApplyDataset(t Transformer, ds records.Dataset) records.Dataset {
	return ds.WithRows(t.Apply(ds.Rows))
}

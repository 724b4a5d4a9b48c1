// Package parser defines the contract between raw source bytes and datasets.
package parser

import (
	"io"

	"housingetl/pkg/records"
)

// Parser turns a byte stream into a dataset. The returned int is the number
// of rows skipped because they could not be parsed.
type Parser interface {
	Parse(r io.Reader) (records.Dataset, int, error)
}

// Package datasource defines where raw extract bytes come from. Concrete
// sources live in subpackages: file (local or in-memory filesystems) and
// httpds (HTTP downloads with retry).
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh reader over one extract. Callers close the reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

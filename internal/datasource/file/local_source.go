// Package file implements a filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Local is a data source that opens one path on an afero filesystem.
type Local struct {
	fs   afero.Fs
	path string
}

// NewLocal returns a Local bound to path on the OS filesystem.
func NewLocal(path string) *Local { return NewLocalFs(afero.NewOsFs(), path) }

// NewLocalFs returns a Local bound to path on fs. Tests pass an
// afero.NewMemMapFs so no real files are touched.
func NewLocalFs(fs afero.Fs, path string) *Local { return &Local{fs: fs, path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A context that is already done short-circuits before the filesystem is
// touched. Filesystem errors are wrapped with the path and still match
// errors.Is(err, fs.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := l.fs.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	st, err := f.Stat()
	if err == nil && st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", l.path)
	}
	return f, nil
}

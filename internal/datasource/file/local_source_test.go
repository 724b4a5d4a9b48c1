package file

import (
	"context"
	"io"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/data/housing.csv", []byte("guid,zip_code\ng1,90001\n"), 0o644))
	require.NoError(t, mem.MkdirAll("/data/dir", 0o755))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name        string
		path        string
		ctx         context.Context
		wantErrIs   error
		wantErrText string
		wantContent string
	}{
		{name: "reads_content", path: "/data/housing.csv", ctx: context.Background(), wantContent: "guid,zip_code\ng1,90001\n"},
		{name: "missing_file", path: "/data/missing.csv", ctx: context.Background(), wantErrIs: fs.ErrNotExist, wantErrText: "open /data/missing.csv"},
		{name: "directory", path: "/data/dir", ctx: context.Background(), wantErrText: "is a directory"},
		{name: "canceled_context", path: "/data/housing.csv", ctx: canceled, wantErrIs: context.Canceled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src := NewLocalFs(mem, tc.path)
			assert.Equal(t, tc.path, src.Path())

			rc, err := src.Open(tc.ctx)
			if tc.wantErrIs != nil || tc.wantErrText != "" {
				require.Error(t, err)
				assert.Nil(t, rc)
				if tc.wantErrIs != nil {
					assert.ErrorIs(t, err, tc.wantErrIs)
				}
				if tc.wantErrText != "" {
					assert.Contains(t, err.Error(), tc.wantErrText)
				}
				return
			}

			require.NoError(t, err)
			defer rc.Close()
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, tc.wantContent, string(b))
		})
	}
}

func TestNewLocal_UsesOsFs(t *testing.T) {
	t.Parallel()

	l := NewLocal("/definitely/not/here.csv")
	_, ok := l.fs.(*afero.OsFs)
	assert.True(t, ok)

	_, err := l.Open(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

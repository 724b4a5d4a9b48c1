package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingetl/internal/storage"
)

func TestMySQLStorageRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Repository{}
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	cfg := storage.Config{Kind: "mysql", DSN: "etl:secret@tcp(db:3306)/housing", Table: "housing"}
	repo, err := storage.New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Config{DSN: cfg.DSN, Table: "housing"}, gotCfg)

	w, ok := repo.(*wrappedRepo)
	require.True(t, ok)
	assert.Same(t, fake, w.Repository)

	repo.Close()
	assert.True(t, closed)

	d, ok := storage.DialectFor("mysql")
	require.True(t, ok)
	assert.Equal(t, "mysql", d.Name)
}

func TestNewRepository_InvalidDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn", Table: "housing"})
	assert.ErrorContains(t, err, "mysql dsn:")
}

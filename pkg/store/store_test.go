package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]VanishStore {
	t.Helper()
	sql, err := Open(filepath.Join(t.TempDir(), "vanish.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sql.Close() })
	return map[string]VanishStore{
		"sql":    sql,
		"memory": NewMemory(),
	}
}

func TestVanishStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			id := uuid.New()

			v, err := s.IsVanished(ctx, id)
			require.NoError(t, err)
			assert.False(t, v, "unknown profiles are visible")

			require.NoError(t, s.SetVanished(ctx, id, true))
			v, err = s.IsVanished(ctx, id)
			require.NoError(t, err)
			assert.True(t, v)

			// overwrite the existing row
			require.NoError(t, s.SetVanished(ctx, id, false))
			v, err = s.IsVanished(ctx, id)
			require.NoError(t, err)
			assert.False(t, v)

			other, err := s.IsVanished(ctx, uuid.New())
			require.NoError(t, err)
			assert.False(t, other)
		})
	}
}

func TestSQLPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vanish.db")
	id := uuid.New()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetVanished(ctx, id, true))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.IsVanished(ctx, id)
	require.NoError(t, err)
	assert.True(t, v)
}

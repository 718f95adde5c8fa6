package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gs, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })

	stores := map[string]Store{
		"memory": NewMemoryStore(""),
		"gorm":   gs,
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			tok, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, tok)

			require.NoError(t, s.Save(ctx, "first"))
			require.NoError(t, s.Save(ctx, "second"))
			assert.Equal(t, "second", s.Token())

			tok, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "second", tok)

			require.NoError(t, s.Clear(ctx))
			assert.Empty(t, s.Token())
			tok, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, tok)
		})
	}
}

func TestGormStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "session.db")

	first, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "persisted"))
	require.NoError(t, first.Close())

	second, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	assert.Empty(t, second.Token(), "cache is filled by Load")
	tok, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", tok)
	assert.Equal(t, "persisted", second.Token())
}

package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkloud/liteq/store"
)

func TestOpenRejectsInMemory(t *testing.T) {
	_, err := store.Open(context.Background(), ":memory:", store.Config{})
	assert.ErrorIs(t, err, store.ErrInMemoryUnsupported)
}

func TestOpenCreatesSchemaAndIsReopenable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "liteq.db")

	s, err := store.Open(ctx, path, store.Config{MaxRetries: 3})
	require.NoError(t, err)

	id, err := s.Put(ctx, "default", []byte("hello"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening the same file must see the already-committed row and must
	// not fail re-creating the schema (InitDB is idempotent).
	s2, err := store.Open(ctx, path, store.Config{MaxRetries: 3})
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.QSize(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, err := s2.Peek(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, id, msg.ID)
}

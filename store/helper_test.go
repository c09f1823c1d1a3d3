package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkloud/liteq/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "liteq.db")
	s, err := store.Open(ctx, path, store.Config{MaxRetries: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

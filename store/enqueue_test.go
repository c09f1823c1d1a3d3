package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkloud/liteq/id"
	"github.com/unkloud/liteq/store"
)

func TestPutAssignsValidMonotonicIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		got, err := s.Put(ctx, "default", []byte("payload"), 0)
		require.NoError(t, err)
		require.True(t, id.Valid(got))
		ids = append(ids, got)
	}

	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}
}

func TestPutBatchAssignsIDsInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payloads := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	ids, err := s.PutBatch(ctx, "default", payloads, 0)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}

	n, err := s.QSize(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPutBatchRejectsOversizedBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payloads := make([][]byte, store.MaxBatchSize+1)
	for i := range payloads {
		payloads[i] = []byte("x")
	}

	_, err := s.PutBatch(ctx, "default", payloads, 0)
	assert.ErrorIs(t, err, store.ErrBatchTooLarge)
}

func TestPutBatchEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.PutBatch(ctx, "default", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPutVisibleAfterDelaysEligibility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "default", []byte("delayed"), 2*time.Second)
	require.NoError(t, err)

	msg, err := s.Peek(ctx, "default")
	require.NoError(t, err)
	assert.Nil(t, msg, "delayed message should not be eligible yet")

	time.Sleep(2100 * time.Millisecond)

	msg, err = s.Peek(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, msg)
}

func TestPutIsolatesQueuesByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "orders", []byte("order"), 0)
	require.NoError(t, err)
	_, err = s.Put(ctx, "emails", []byte("email"), 0)
	require.NoError(t, err)

	n, err := s.QSize(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msg, err := s.Peek(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, []byte("order"), msg.Data)
}

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopReturnsNilOnEmptyQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg, err := s.Pop(ctx, "default", time.Second, 5)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestPopOrdersByCreationThenID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, "default", []byte("first"), 0)
	require.NoError(t, err)
	second, err := s.Put(ctx, "default", []byte("second"), 0)
	require.NoError(t, err)

	msg, err := s.Pop(ctx, "default", time.Second, 5)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, first, msg.ID)

	msg, err = s.Pop(ctx, "default", time.Second, 5)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, second, msg.ID)
}

func TestPopLeaseHidesMessageFromOtherConsumers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "default", []byte("payload"), 0)
	require.NoError(t, err)

	msg, err := s.Pop(ctx, "default", time.Minute, 5)
	require.NoError(t, err)
	require.NotNil(t, msg)

	again, err := s.Pop(ctx, "default", time.Minute, 5)
	require.NoError(t, err)
	assert.Nil(t, again, "a leased message must not be handed out a second time")
}

func TestPopZombieReappearsAfterLeaseExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "default", []byte("payload"), 0)
	require.NoError(t, err)

	first, err := s.Pop(ctx, "default", 50*time.Millisecond, 5)
	require.NoError(t, err)
	require.NotNil(t, first)

	time.Sleep(80 * time.Millisecond)

	second, err := s.Pop(ctx, "default", time.Minute, 5)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.RetryCount+1, second.RetryCount, "each lease grant counts as an attempt")
}

func TestPopPromotesToDLQAfterExhaustingRetries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const maxRetries = 2
	_, err := s.Put(ctx, "default", []byte("doomed"), 0)
	require.NoError(t, err)

	// maxRetries successful lease grants exhaust retry_count 0..maxRetries-1;
	// the next grant would need retry_count+1 > maxRetries, which is where
	// popOnce promotes instead of returning.
	for i := 0; i < maxRetries; i++ {
		msg, err := s.Pop(ctx, "default", time.Millisecond, maxRetries)
		require.NoError(t, err)
		require.NotNil(t, msg, "attempt %d", i)
		time.Sleep(5 * time.Millisecond)
	}
	msg, err := s.Pop(ctx, "default", time.Second, maxRetries)
	require.NoError(t, err)
	assert.Nil(t, msg)

	n, err := s.DLQSize(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	size, err := s.QSize(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestPeekDoesNotMutateState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "default", []byte("payload"), 0)
	require.NoError(t, err)

	first, err := s.Peek(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.Peek(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 0, second.RetryCount, "peek must not increment retry_count")
}

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQSizeCountsLeasedAndVisibleRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "default", []byte("a"), 0)
	require.NoError(t, err)
	_, err = s.Put(ctx, "default", []byte("b"), 0)
	require.NoError(t, err)

	_, err = s.Pop(ctx, "default", time.Minute, 5)
	require.NoError(t, err)

	n, err := s.QSize(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "a leased-but-undeleted row still counts")
}

func TestClearRemovesOnlyNamedQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "a", []byte("x"), 0)
	require.NoError(t, err)
	_, err = s.Put(ctx, "b", []byte("y"), 0)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "a", false))

	na, err := s.QSize(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), na)

	nb, err := s.QSize(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), nb)
}

func TestClearIncludeDLQAlsoClearsDeadLetters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "default", []byte("doomed"), 0)
	require.NoError(t, err)

	msg, err := s.Pop(ctx, "default", time.Minute, 5)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.NoError(t, s.ProcessFailed(ctx, msg, "fatal", 0))

	dlqBefore, err := s.DLQSize(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, int64(1), dlqBefore)

	require.NoError(t, s.Clear(ctx, "default", true))

	dlqAfter, err := s.DLQSize(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(0), dlqAfter)
}

func TestRedrivePreservesIDAndResetsRetryCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Put(ctx, "default", []byte("doomed"), 0)
	require.NoError(t, err)

	msg, err := s.Pop(ctx, "default", time.Minute, 5)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.NoError(t, s.ProcessFailed(ctx, msg, "fatal", 0))

	n, err := s.Redrive(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	revived, err := s.Peek(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, revived)
	assert.Equal(t, id, revived.ID)
	assert.Equal(t, 0, revived.RetryCount)

	dlqAfter, err := s.DLQSize(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(0), dlqAfter)
}

func TestRedriveOnEmptyDLQIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Redrive(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

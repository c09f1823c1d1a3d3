package liteq

import (
	"context"
	"time"
)

// Enqueuer is the write-side entry point of the backing store.
type Enqueuer interface {
	// Put persists one message and returns its assigned id. Put is
	// atomic and durable on return: a nil error guarantees the row is
	// committed.
	Put(ctx context.Context, queueName string, data []byte, visibleAfter time.Duration) (string, error)

	// PutBatch persists up to MaxBatchSize messages in a single
	// transaction and returns their assigned ids in the same order as
	// payloads.
	PutBatch(ctx context.Context, queueName string, payloads [][]byte, visibleAfter time.Duration) ([]string, error)
}

// Dequeuer is the read-write contract for the message lifecycle: pop,
// inspect, ack, and nack.
type Dequeuer interface {
	// Pop runs the transactional peek/lease/promote/commit protocol
	// described by spec.md §4.4 and returns the leased message, or nil if
	// the queue has nothing eligible right now.
	Pop(ctx context.Context, queueName string, invisible time.Duration, maxRetries int) (*Message, error)

	// Peek returns the row Pop would take next, without mutating state.
	Peek(ctx context.Context, queueName string) (*Message, error)

	// Delete unconditionally removes the message with the given id. Not
	// an error if the id is absent.
	Delete(ctx context.Context, id string) error

	// ProcessFailed records a failed delivery attempt: it either
	// increments retry_count, or promotes the row to the dead-letter
	// table with reason if the retry budget is exhausted.
	ProcessFailed(ctx context.Context, msg *Message, reason string, maxRetries int) error
}

// Maintainer is the administrative surface over a queue's state.
type Maintainer interface {
	// QSize returns the number of rows (visible or leased) in the
	// messages table for queueName.
	QSize(ctx context.Context, queueName string) (int64, error)

	// Clear deletes all rows for queueName from messages, and from dlq
	// if includeDLQ is true, in one transaction.
	Clear(ctx context.Context, queueName string, includeDLQ bool) error

	// Redrive moves all dlq rows for queueName back into messages, with
	// retry_count reset to 0 and visible_after/created_at set to now,
	// preserving message ids.
	Redrive(ctx context.Context, queueName string) (int64, error)
}

// Store is the full backing-store contract the queue engine requires. It
// exists so a storage implementation other than package store's SQLite
// backend could be substituted without touching Queue.
type Store interface {
	Enqueuer
	Dequeuer
	Maintainer

	// Close releases resources held by the store.
	Close() error
}

package liteq

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict indicates a primary-key collision on enqueue that
	// survived the bounded internal retry budget. Extremely unlikely by
	// construction (see package id), surfaced as-is.
	ErrConflict = errors.New("liteq: id conflict")

	// ErrLockTimeout indicates the store's write lock could not be
	// acquired within the configured lock timeout.
	//
	// Inside Pop, this is handled internally (treated as "try again") and
	// never surfaces unless the overall wait budget is exhausted.
	// Elsewhere it is surfaced as-is.
	ErrLockTimeout = errors.New("liteq: lock timeout")

	// ErrInMemoryUnsupported is returned by store.Open when asked to open
	// the SQLite in-memory sentinel. Every liteq feature depends on
	// crash-durable, multi-connection-visible storage.
	ErrInMemoryUnsupported = errors.New("liteq: in-memory database is not supported")

	// ErrBadQueueName is returned when an empty queue name is supplied
	// where a concrete queue is required.
	ErrBadQueueName = errors.New("liteq: queue name must not be empty")

	// ErrEmptyPayload is returned by Put when the payload is empty.
	ErrEmptyPayload = errors.New("liteq: payload must not be empty")

	// ErrBatchTooLarge is returned by PutBatch when more than the
	// supported number of payloads is supplied in one call.
	ErrBatchTooLarge = errors.New("liteq: batch exceeds maximum size")
)

// StoreError wraps a failure reported by the backing store (I/O error,
// disk full, corruption, or any other driver-level failure). The
// transaction that produced it has already been rolled back; StoreError
// is never returned for a partially applied mutation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("liteq: store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// ConsumerError wraps the error returned by a Consume handler. Consume
// always nacks the message with the handler error's text and then re-raises
// ConsumerError to the caller; it never swallows a handler's error.
type ConsumerError struct {
	Err error
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("liteq: consumer handler failed: %v", e.Err)
}

func (e *ConsumerError) Unwrap() error {
	return e.Err
}

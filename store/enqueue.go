package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unkloud/liteq/id"
)

// MaxBatchSize bounds PutBatch.
const MaxBatchSize = 50

// ErrBatchTooLarge is returned by PutBatch when more payloads than
// MaxBatchSize are supplied.
var ErrBatchTooLarge = errors.New("store: batch exceeds maximum size")

// ErrConflict indicates a primary-key collision on enqueue that survived
// the bounded internal retry budget.
var ErrConflict = errors.New("store: id conflict")

const maxPutRetries = 3

// Put inserts one message and returns its assigned id.
//
// On primary-key conflict (essentially impossible given package id's
// guarantees, but handled), Put retries up to a bounded count with a
// short sleep before giving up with ErrConflict.
func (s *Store) Put(ctx context.Context, queueName string, data []byte, visibleAfter time.Duration) (string, error) {
	now := time.Now()
	for attempt := 0; attempt < maxPutRetries; attempt++ {
		m := &messageModel{
			ID:           id.New(),
			QueueName:    queueName,
			Data:         data,
			VisibleAfter: epochSeconds(now.Add(visibleAfter)),
			RetryCount:   0,
			CreatedAt:    epochSeconds(now),
		}
		_, err := s.db.NewInsert().Model(m).Exec(ctx)
		if err == nil {
			return m.ID, nil
		}
		if !isConflict(err) {
			return "", fmt.Errorf("store: put: %w", err)
		}
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
	return "", ErrConflict
}

// PutBatch inserts up to MaxBatchSize payloads in a single transaction and
// returns their assigned ids in the same order as payloads.
func (s *Store) PutBatch(ctx context.Context, queueName string, payloads [][]byte, visibleAfter time.Duration) ([]string, error) {
	if len(payloads) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	if len(payloads) == 0 {
		return nil, nil
	}

	now := time.Now()
	for attempt := 0; attempt < maxPutRetries; attempt++ {
		models := make([]*messageModel, len(payloads))
		ids := make([]string, len(payloads))
		for i, p := range payloads {
			mid := id.New()
			ids[i] = mid
			models[i] = &messageModel{
				ID:           mid,
				QueueName:    queueName,
				Data:         p,
				VisibleAfter: epochSeconds(now.Add(visibleAfter)),
				RetryCount:   0,
				CreatedAt:    epochSeconds(now),
			}
		}
		_, err := s.db.NewInsert().Model(&models).Exec(ctx)
		if err == nil {
			return ids, nil
		}
		if !isConflict(err) {
			return nil, fmt.Errorf("store: put batch: %w", err)
		}
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
	return nil, ErrConflict
}

func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY must be unique") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}

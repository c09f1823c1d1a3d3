package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Delete unconditionally removes the message with the given id. Deleting
// an id that is not present is not an error: the caller may be acking a
// message whose lease already expired and was redelivered and acked by
// another consumer first.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().
		Model((*messageModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	if !isAffected(res) {
		s.log.Debug("delete affected no row, already gone", "id", id)
	}
	return nil
}

// ProcessFailed records a failed delivery attempt for msg.
//
// If msg.RetryCount+1 exceeds maxRetries, the row is moved to the
// dead-letter table with reason and removed from messages. Otherwise
// retry_count is incremented; visible_after is deliberately left
// untouched, since the lease set at Pop already defines the earliest time
// the message becomes visible again — one lease-length minimum between
// attempts, acting as a retry backoff.
func (s *Store) ProcessFailed(ctx context.Context, msg *Message, reason string, maxRetries int) error {
	newRetryCount := msg.RetryCount + 1

	if newRetryCount > maxRetries {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("store: process failed: %w", err)
		}
		dead := &dlqModel{
			ID:        msg.ID,
			QueueName: msg.QueueName,
			Data:      msg.Data,
			FailedAt:  epochSeconds(time.Now()),
			Reason:    reason,
		}
		if _, err := tx.NewInsert().Model(dead).Exec(ctx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: process failed: %w", err)
		}
		if _, err := tx.NewDelete().Model((*messageModel)(nil)).Where("id = ?", msg.ID).Exec(ctx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: process failed: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: process failed: %w", err)
		}
		s.log.Debug("promoted message to dead-letter queue after nack", "id", msg.ID, "reason", reason)
		return nil
	}

	res, err := s.db.NewUpdate().
		Model((*messageModel)(nil)).
		Set("retry_count = ?", newRetryCount).
		Where("id = ?", msg.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: process failed: %w", err)
	}
	if n := getAffected(res); n == 0 {
		s.log.Debug("process failed affected no row, already acked or promoted", "id", msg.ID)
	}
	return nil
}

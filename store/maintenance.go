package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QSize returns the number of rows (visible or leased) in messages for
// queueName.
func (s *Store) QSize(ctx context.Context, queueName string) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*messageModel)(nil)).
		Where("queue_name = ?", queueName).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: qsize: %w", err)
	}
	return int64(count), nil
}

// Clear deletes all rows for queueName from messages, and from dlq if
// includeDLQ is true, in one transaction.
func (s *Store) Clear(ctx context.Context, queueName string, includeDLQ bool) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	if _, err := tx.NewDelete().Model((*messageModel)(nil)).Where("queue_name = ?", queueName).Exec(ctx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: clear: %w", err)
	}
	if includeDLQ {
		if _, err := tx.NewDelete().Model((*dlqModel)(nil)).Where("queue_name = ?", queueName).Exec(ctx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: clear: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// Redrive moves all dlq rows for queueName back into messages, with
// retry_count reset to 0 and visible_after/created_at set to now,
// preserving message ids, then deletes them from dlq. It returns the
// number of rows redriven.
func (s *Store) Redrive(ctx context.Context, queueName string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("store: redrive: %w", err)
	}

	var dead []dlqModel
	if err := tx.NewSelect().Model(&dead).Where("queue_name = ?", queueName).Scan(ctx); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("store: redrive: %w", err)
	}
	if len(dead) == 0 {
		return 0, tx.Commit()
	}

	now := epochSeconds(time.Now())
	revived := make([]*messageModel, len(dead))
	for i, d := range dead {
		revived[i] = &messageModel{
			ID:           d.ID,
			QueueName:    d.QueueName,
			Data:         d.Data,
			VisibleAfter: now,
			RetryCount:   0,
			CreatedAt:    now,
		}
	}
	if _, err := tx.NewInsert().Model(&revived).Exec(ctx); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("store: redrive: %w", err)
	}
	if _, err := tx.NewDelete().Model((*dlqModel)(nil)).Where("queue_name = ?", queueName).Exec(ctx); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("store: redrive: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: redrive: %w", err)
	}
	return int64(len(dead)), nil
}

// DLQSize returns the number of rows in dlq for queueName. It is a
// diagnostic convenience beyond spec.md's named surface, used by tests and
// administrative tooling to assert on DLQ state without reaching into the
// database directly.
func (s *Store) DLQSize(ctx context.Context, queueName string) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*dlqModel)(nil)).
		Where("queue_name = ?", queueName).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: dlq size: %w", err)
	}
	return int64(count), nil
}

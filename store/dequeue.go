package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	hex "github.com/tmthrgd/go-hex"
)

// payloadPreviewLen bounds how many leading payload bytes debug logging
// renders as hex, so a large message body never floods the log.
const payloadPreviewLen = 16

func payloadPreview(data []byte) string {
	if len(data) > payloadPreviewLen {
		data = data[:payloadPreviewLen]
	}
	return hex.EncodeToString(data)
}

// maxPopAttempts bounds the in-process retry loop Pop runs when a
// candidate row is promoted to the dead-letter queue in-line (spec.md
// §4.4 step 5) or when the write lock is momentarily busy (step 1). It is
// not a delivery-retry limit — that is MaxRetries — it only bounds how
// many times one Pop call loops internally before giving up and returning
// an error, as a backstop against a pathological hot loop.
const maxPopAttempts = 1000

// ErrLockTimeout reports that Pop exhausted maxPopAttempts without ever
// getting past a busy write lock (spec.md §7 "LockTimeout"). Pop itself
// treats individual busy responses as "try again"; this is only returned
// once that internal retry budget is spent on lock contention specifically,
// as opposed to a run of DLQ promotions.
var ErrLockTimeout = errors.New("store: lock timeout")

// Pop selects the single eligible candidate for queueName (lowest
// created_at, ties broken by id), leases it, and returns it.
//
// If the candidate has already exhausted maxRetries, Pop promotes it to
// the dead-letter table in the same transaction and loops to the next
// candidate, per spec.md §4.4 step 5. If the write lock is held by
// another writer past busy_timeout, Pop loops without surfacing an error
// (the caller's wait-loop, not this call, owns the overall deadline) —
// unless the internal retry budget runs out while busy, in which case it
// returns ErrLockTimeout.
//
// Pop returns (nil, nil) if queueName has nothing eligible right now.
func (s *Store) Pop(ctx context.Context, queueName string, invisible time.Duration, maxRetries int) (*Message, error) {
	busy := false
	for attempt := 0; attempt < maxPopAttempts; attempt++ {
		msg, promoted, err := s.popOnce(ctx, queueName, invisible, maxRetries)
		if err != nil {
			if isBusy(err) {
				busy = true
				continue
			}
			return nil, fmt.Errorf("store: pop: %w", err)
		}
		busy = false
		if promoted {
			continue
		}
		return msg, nil
	}
	if busy {
		return nil, fmt.Errorf("store: pop: %w", ErrLockTimeout)
	}
	return nil, fmt.Errorf("store: pop: exceeded %d internal attempts promoting dead-lettered rows", maxPopAttempts)
}

// popOnce runs one dequeue transaction. promoted reports whether the
// candidate was DLQ-promoted instead of delivered, signaling the caller
// to loop back to step 1 without treating it as an error.
func (s *Store) popOnce(ctx context.Context, queueName string, invisible time.Duration, maxRetries int) (msg *Message, promoted bool, err error) {
	now := time.Now()
	nowEpoch := epochSeconds(now)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var candidate messageModel
	selectErr := tx.NewSelect().
		Model(&candidate).
		Where("queue_name = ?", queueName).
		Where("visible_after <= ?", nowEpoch).
		Order("created_at ASC", "id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(selectErr, sql.ErrNoRows) {
		return nil, false, tx.Commit()
	}
	if selectErr != nil {
		return nil, false, selectErr
	}

	if candidate.RetryCount+1 > maxRetries {
		dead := &dlqModel{
			ID:        candidate.ID,
			QueueName: candidate.QueueName,
			Data:      candidate.Data,
			FailedAt:  nowEpoch,
			Reason:    fmt.Sprintf("Max retries exceeded during pop (%d)", maxRetries),
		}
		if _, err = tx.NewInsert().Model(dead).Exec(ctx); err != nil {
			return nil, false, err
		}
		if _, err = tx.NewDelete().Model((*messageModel)(nil)).Where("id = ?", candidate.ID).Exec(ctx); err != nil {
			return nil, false, err
		}
		if err = tx.Commit(); err != nil {
			return nil, false, err
		}
		s.log.Debug("promoted message to dead-letter queue during pop",
			"id", dead.ID, "queue", queueName, "retry_count", candidate.RetryCount)
		return nil, true, nil
	}

	preUpdate := candidate.toMessage()
	newVisibleAfter := epochSeconds(now.Add(invisible))
	_, err = tx.NewUpdate().
		Model((*messageModel)(nil)).
		Set("visible_after = ?", newVisibleAfter).
		Set("retry_count = retry_count + 1").
		Where("id = ?", candidate.ID).
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}
	if err = tx.Commit(); err != nil {
		return nil, false, err
	}
	s.log.Debug("leased message",
		"id", preUpdate.ID, "queue", queueName,
		"lease", humanize.RelTime(now, now.Add(invisible), "", ""),
		"payload_preview", payloadPreview(preUpdate.Data))
	return preUpdate, false, nil
}

// Peek returns the row Pop would take next for queueName, without
// mutating state.
func (s *Store) Peek(ctx context.Context, queueName string) (*Message, error) {
	now := epochSeconds(time.Now())
	var candidate messageModel
	err := s.db.NewSelect().
		Model(&candidate).
		Where("queue_name = ?", queueName).
		Where("visible_after <= ?", now).
		Order("created_at ASC", "id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: peek: %w", err)
	}
	return candidate.toMessage(), nil
}

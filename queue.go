package liteq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/unkloud/liteq/store"
)

var _ Store = (*store.Store)(nil)

// Queue is the consumer-facing façade over a Store. It is a thin,
// stateless wrapper: all coordination lives in short transactions against
// the backing store, never in memory here.
type Queue struct {
	store Store
	cfg   Config
	stats stats
}

type stats struct {
	puts         *xsync.Counter
	pops         *xsync.Counter
	acks         *xsync.Counter
	nacks        *xsync.Counter
	deadLettered *xsync.Counter
}

func newStats() stats {
	return stats{
		puts:         xsync.NewCounter(),
		pops:         xsync.NewCounter(),
		acks:         xsync.NewCounter(),
		nacks:        xsync.NewCounter(),
		deadLettered: xsync.NewCounter(),
	}
}

// Stats is a point-in-time snapshot of a Queue's lifetime operation
// counts, for in-process diagnostics. It is not persisted and resets when
// the process restarts.
type Stats struct {
	Puts         int64
	Pops         int64
	Acks         int64
	Nacks        int64
	DeadLettered int64
}

// Stats returns a snapshot of this Queue's lifetime operation counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Puts:         q.stats.puts.Value(),
		Pops:         q.stats.pops.Value(),
		Acks:         q.stats.acks.Value(),
		Nacks:        q.stats.nacks.Value(),
		DeadLettered: q.stats.deadLettered.Value(),
	}
}

// Open opens path as a LiteQueue engine file, applying cfg (zero-valued
// fields take their documented defaults). Open rejects the SQLite
// in-memory sentinel path ":memory:".
func Open(ctx context.Context, path string, cfg Config) (*Queue, error) {
	cfg = cfg.WithDefaults()
	s, err := store.Open(ctx, path, store.Config{
		MaxRetries:  cfg.MaxRetries,
		LockTimeout: cfg.LockTimeout,
		Debug:       cfg.Debug,
	})
	if err != nil {
		if errors.Is(err, store.ErrInMemoryUnsupported) {
			return nil, ErrInMemoryUnsupported
		}
		return nil, wrapStoreErr("open", err)
	}
	return &Queue{store: s, cfg: cfg, stats: newStats()}, nil
}

// Close releases the underlying store connection.
func (q *Queue) Close() error {
	return q.store.Close()
}

func translatePopErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrLockTimeout):
		return ErrLockTimeout
	default:
		return wrapStoreErr("pop", err)
	}
}

func translatePutErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	case errors.Is(err, store.ErrBatchTooLarge):
		return ErrBatchTooLarge
	default:
		return wrapStoreErr("put", err)
	}
}

// Put enqueues data on the queue named by opts.QueueName (default
// DefaultQueueName), optionally delayed by opts.VisibleAfter, and returns
// the assigned message id.
//
// Put is atomic and durable on return: a nil error guarantees the row is
// committed.
func (q *Queue) Put(ctx context.Context, data []byte, opts PutOptions) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	id, err := q.store.Put(ctx, opts.queueName(), data, opts.VisibleAfter)
	if err != nil {
		return "", translatePutErr(err)
	}
	q.stats.puts.Inc()
	return id, nil
}

// PutBatch enqueues up to MaxBatchSize payloads in a single transaction
// and returns their assigned ids in the same order as payloads.
func (q *Queue) PutBatch(ctx context.Context, payloads [][]byte, opts PutOptions) ([]string, error) {
	if len(payloads) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	for _, p := range payloads {
		if len(p) == 0 {
			return nil, ErrEmptyPayload
		}
	}
	ids, err := q.store.PutBatch(ctx, opts.queueName(), payloads, opts.VisibleAfter)
	if err != nil {
		return nil, translatePutErr(err)
	}
	q.stats.puts.Add(int64(len(ids)))
	return ids, nil
}

// Pop attempts to lease one message from the queue named by
// opts.QueueName. If none is eligible and opts.WaitSeconds is zero, Pop
// returns (nil, nil) immediately. If opts.WaitSeconds is positive, Pop
// polls roughly every 50ms until a message becomes available or the
// deadline elapses.
func (q *Queue) Pop(ctx context.Context, opts PopOptions) (*Message, error) {
	queueName := opts.queueName()
	invisible := time.Duration(opts.invisible()) * time.Second
	deadline := time.Now().Add(time.Duration(opts.WaitSeconds) * time.Second)

	for {
		msg, err := q.store.Pop(ctx, queueName, invisible, q.cfg.MaxRetries)
		if err != nil {
			// LockTimeout is only handled internally while the overall wait
			// budget isn't spent yet (spec.md §7); once it is, it surfaces
			// like any other error, via translatePopErr.
			waiting := opts.WaitSeconds > 0 && !time.Now().After(deadline)
			if errors.Is(err, store.ErrLockTimeout) && waiting {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(pollInterval):
				}
				continue
			}
			return nil, translatePopErr(err)
		}
		if msg != nil {
			q.stats.pops.Inc()
			return msg, nil
		}
		if opts.WaitSeconds <= 0 || time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Peek returns the row Pop would take next for the named queue, without
// mutating state.
func (q *Queue) Peek(ctx context.Context, queueName string) (*Message, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	msg, err := q.store.Peek(ctx, queueName)
	if err != nil {
		return nil, wrapStoreErr("peek", err)
	}
	return msg, nil
}

// Delete acknowledges successful processing of id. Deleting an id that is
// not present is not an error.
func (q *Queue) Delete(ctx context.Context, id string) error {
	if err := q.store.Delete(ctx, id); err != nil {
		return wrapStoreErr("delete", err)
	}
	q.stats.acks.Inc()
	return nil
}

// ProcessFailed records a failed delivery attempt for msg. If its retry
// budget is exhausted, the row is promoted to the dead-letter queue with
// reason; otherwise its retry count is incremented and its existing lease
// is left in place as a backoff window.
func (q *Queue) ProcessFailed(ctx context.Context, msg *Message, reason string) error {
	if err := q.store.ProcessFailed(ctx, msg, reason, q.cfg.MaxRetries); err != nil {
		return wrapStoreErr("process_failed", err)
	}
	q.stats.nacks.Inc()
	if msg.RetryCount+1 > q.cfg.MaxRetries {
		q.stats.deadLettered.Inc()
	}
	return nil
}

// Handler processes one message popped from a queue. A nil return acks
// the message (Delete); a non-nil return nacks it (ProcessFailed) with
// the error's text, and Consume re-raises a *ConsumerError wrapping it.
type Handler func(ctx context.Context, msg *Message) error

// Consume pops one message and scopes handler's success or failure to the
// automatic ack/nack this engine promises:
//
//   - if nothing is eligible, Consume calls handler with a nil message and
//     returns its error (handler may treat this as "nothing to do");
//   - if handler returns nil, Consume acks (Delete);
//   - if handler returns an error, Consume nacks (ProcessFailed) with the
//     error's text, then returns *ConsumerError wrapping it;
//   - if handler panics, Consume nacks with the panic's text and re-panics.
//
// This is the recommended way to consume: it makes the at-least-once,
// lease, and DLQ semantics automatic and leak-proof.
func (q *Queue) Consume(ctx context.Context, opts PopOptions, handler Handler) error {
	msg, err := q.Pop(ctx, opts)
	if err != nil {
		return err
	}
	if msg == nil {
		return handler(ctx, nil)
	}

	defer func() {
		if r := recover(); r != nil {
			if nackErr := q.ProcessFailed(ctx, msg, fmt.Sprintf("panic: %v", r)); nackErr != nil {
				// The handler panicked; a secondary store failure here must
				// not replace the original panic. Log and swallow it.
				q.logNackFailure(nackErr)
			}
			panic(r)
		}
	}()

	if err := handler(ctx, msg); err != nil {
		cerr := &ConsumerError{Err: err}
		if nackErr := q.ProcessFailed(ctx, msg, err.Error()); nackErr != nil {
			q.logNackFailure(nackErr)
		}
		return cerr
	}
	return q.Delete(ctx, msg.ID)
}

func (q *Queue) logNackFailure(err error) {
	// Intentionally best-effort: the handler's own error (or panic) is
	// what the caller sees; a failed nack just means the message will
	// reappear after its lease expires instead of being nacked promptly.
	_ = err
}

// QSize returns the number of rows (visible or leased) for the named
// queue.
func (q *Queue) QSize(ctx context.Context, queueName string) (int64, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	n, err := q.store.QSize(ctx, queueName)
	if err != nil {
		return 0, wrapStoreErr("qsize", err)
	}
	return n, nil
}

// Empty reports whether the named queue has no rows.
func (q *Queue) Empty(ctx context.Context, queueName string) (bool, error) {
	n, err := q.QSize(ctx, queueName)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Join blocks, polling, until the named queue is empty or ctx is done.
// There is no fairness guarantee beyond the store's own.
func (q *Queue) Join(ctx context.Context, queueName string) error {
	for {
		empty, err := q.Empty(ctx, queueName)
		if err != nil {
			return err
		}
		if empty {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval * 2):
		}
	}
}

// Clear deletes all rows for the named queue from messages, and from the
// dead-letter table too if includeDLQ is true, in one transaction.
func (q *Queue) Clear(ctx context.Context, queueName string, includeDLQ bool) error {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	if err := q.store.Clear(ctx, queueName, includeDLQ); err != nil {
		return wrapStoreErr("clear", err)
	}
	return nil
}

// Redrive moves all dead-lettered rows for the named queue back into the
// live queue, with retry_count reset to 0, preserving message ids. It
// returns the number of rows redriven.
func (q *Queue) Redrive(ctx context.Context, queueName string) (int64, error) {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	n, err := q.store.Redrive(ctx, queueName)
	if err != nil {
		return 0, wrapStoreErr("redrive", err)
	}
	return n, nil
}

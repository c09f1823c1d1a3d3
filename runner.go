package liteq

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/unkloud/liteq/internal"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Concurrency is the number of goroutines concurrently calling
	// Consume against QueueName.
	Concurrency int

	// QueueName selects the logical queue to consume from. Defaults to
	// DefaultQueueName.
	QueueName string

	// InvisibleSeconds is the visibility lease length requested on each
	// Consume call. Defaults to DefaultInvisibleSeconds.
	InvisibleSeconds int

	// Idle paces how long a goroutine waits before re-polling an empty
	// queue; it backs off exponentially up to Idle.MaxInterval.
	Idle BackoffConfig

	// HeartbeatInterval, if positive, makes Runner log a queue/DLQ size
	// snapshot on this interval for operational visibility. Zero disables
	// the heartbeat.
	HeartbeatInterval time.Duration
}

// Runner drives a bounded pool of goroutines that repeatedly call
// Queue.Consume against one queue, so a program does not need to hand-roll
// its own polling loop. It supplements spec.md's request/response API with
// the continuous multi-consumer pattern demonstrated by
// original_source/examples/single_producer_multi_consumer_threading.py.
//
// Runner has a strict lifecycle: Start may only be called once; Stop
// gracefully shuts it down, waiting for in-flight handlers to finish or
// the supplied timeout to elapse.
//
// Runner does not change delivery semantics: each message still goes to
// exactly one successful Consume call, with the same lease/retry/DLQ rules
// as a direct Queue.Pop/Consume caller.
type Runner struct {
	lcBase
	queue     *Queue
	handler   Handler
	pool      *internal.WorkerPool[struct{}]
	heartbeat internal.TimerTask
	cfg       RunnerConfig
	log       *slog.Logger
}

// NewRunner creates a Runner that dispatches popped messages to handler.
// The runner is not started automatically; call Start.
func NewRunner(queue *Queue, handler Handler, cfg RunnerConfig, log *slog.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultQueueName
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		queue:   queue,
		handler: handler,
		cfg:     cfg,
		log:     log,
		pool:    internal.NewWorkerPool[struct{}](cfg.Concurrency, 0, log),
	}
}

// errEmptyPoll marks a Consume call that found nothing eligible, so
// consumeLoop can tell "queue empty, back off" apart from "handler
// returned nil because it chose to treat a nil message as success" — both
// of which reach consumeLoop as a nil error from the user's own Handler.
var errEmptyPoll = errors.New("liteq: no message available")

func (r *Runner) pollOnce(ctx context.Context, opts PopOptions) error {
	return r.queue.Consume(ctx, opts, func(ctx context.Context, msg *Message) error {
		if msg == nil {
			return errEmptyPoll
		}
		return r.handler(ctx, msg)
	})
}

func (r *Runner) consumeLoop(ctx context.Context, _ struct{}) {
	back := backoffCounter{r.cfg.Idle.withDefaults()}
	attempt := 0
	opts := PopOptions{
		QueueName:        r.cfg.QueueName,
		InvisibleSeconds: r.cfg.InvisibleSeconds,
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := r.pollOnce(ctx, opts)
		var cerr *ConsumerError
		switch {
		case err == nil:
			attempt = 0
			continue
		case errors.Is(err, errEmptyPoll):
			attempt++
		case errors.As(err, &cerr):
			// The handler ran and failed; ProcessFailed already applied
			// the retry/DLQ bookkeeping. Only idle pacing is decided here.
			attempt++
		default:
			r.log.Error("runner consume failed", "err", err)
			attempt++
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(back.next(attempt - 1)):
		}
	}
}

func (r *Runner) logHeartbeat(ctx context.Context) {
	n, err := r.queue.QSize(ctx, r.cfg.QueueName)
	if err != nil {
		r.log.Warn("runner heartbeat qsize failed", "queue", r.cfg.QueueName, "err", err)
		return
	}
	stats := r.queue.Stats()
	r.log.Info("runner heartbeat",
		"queue", r.cfg.QueueName,
		"size", n,
		"puts", stats.Puts,
		"pops", stats.Pops,
		"acks", stats.Acks,
		"nacks", stats.Nacks,
		"dead_lettered", stats.DeadLettered,
	)
}

// Start begins Concurrency goroutines, each looping Consume against
// QueueName, and — if HeartbeatInterval is positive — a periodic
// size/stats log line. Start returns ErrDoubleStarted if already started.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.tryStart(); err != nil {
		return err
	}
	r.pool.Start(ctx, r.consumeLoop)
	for i := 0; i < r.cfg.Concurrency; i++ {
		r.pool.Push(struct{}{})
	}
	if r.cfg.HeartbeatInterval > 0 {
		r.heartbeat.Start(ctx, r.logHeartbeat, r.cfg.HeartbeatInterval)
	}
	return nil
}

// Stop cancels all worker goroutines and the heartbeat, waiting for both
// to finish, up to timeout. Stop returns ErrDoubleStopped if the runner is
// not running.
func (r *Runner) Stop(timeout time.Duration) error {
	return r.tryStop(timeout, func() internal.DoneChan {
		poolDone := r.pool.Stop()
		if r.cfg.HeartbeatInterval <= 0 {
			return poolDone
		}
		return internal.Combine(poolDone, r.heartbeat.Stop())
	})
}

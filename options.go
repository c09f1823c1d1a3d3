package liteq

import "time"

const (
	// DefaultQueueName is used whenever an operation's QueueName is left
	// empty.
	DefaultQueueName = "default"

	// DefaultMaxRetries is the maximum number of delivery attempts before
	// a message is promoted to the dead-letter queue.
	DefaultMaxRetries = 5

	// DefaultLockTimeout is how long a write transaction waits to acquire
	// the store's write lock (the busy_timeout Open configures) before it
	// gives up.
	DefaultLockTimeout = 5 * time.Second

	// DefaultInvisibleSeconds is the visibility lease length granted by
	// Pop when the caller does not specify one.
	DefaultInvisibleSeconds = 60

	// MaxBatchSize bounds the optional PutBatch call.
	MaxBatchSize = 50

	// pollInterval is the fixed poll interval Pop's wait-loop sleeps for
	// between attempts. spec.md pins this at "~50ms"; it is not
	// configurable, unlike Runner's idle-poll backoff (see backoff.go).
	pollInterval = 50 * time.Millisecond

	// maxPutRetries bounds Put/PutBatch's retry loop on primary-key
	// conflict, before surfacing ErrConflict.
	maxPutRetries = 3
)

// Config configures a Queue (and the store.Store it wraps).
type Config struct {
	// MaxRetries is the maximum number of delivery attempts a message may
	// receive before it is promoted to the dead-letter queue. Zero or a
	// negative value selects DefaultMaxRetries (see WithDefaults), so a
	// limit of zero cannot be set through Config.
	MaxRetries int

	// LockTimeout bounds how long a write transaction waits to acquire
	// SQLite's write lock before reporting SQLITE_BUSY.
	LockTimeout time.Duration

	// Debug attaches a query-tracing hook (see store.Open) to the
	// underlying *bun.DB. Intended for development; it has no effect on
	// queue semantics.
	Debug bool
}

// WithDefaults returns a copy of c with zero-valued fields replaced by
// their defaults.
func (c Config) WithDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	return c
}

// PutOptions configures a single Put call.
type PutOptions struct {
	// QueueName selects the logical queue. Defaults to DefaultQueueName.
	QueueName string

	// VisibleAfter delays the message's eligibility for Pop by this
	// duration from the moment it is enqueued. Zero makes it immediately
	// visible.
	VisibleAfter time.Duration
}

func (o PutOptions) queueName() string {
	if o.QueueName == "" {
		return DefaultQueueName
	}
	return o.QueueName
}

// PopOptions configures a single Pop, Peek, or Consume call.
type PopOptions struct {
	// QueueName selects the logical queue. Defaults to DefaultQueueName.
	QueueName string

	// InvisibleSeconds is the visibility lease length granted on a
	// successful Pop. Defaults to DefaultInvisibleSeconds.
	InvisibleSeconds int

	// WaitSeconds bounds how long Pop blocks, polling, for a message to
	// become available. Zero (the default) makes Pop return immediately
	// if the queue has nothing eligible.
	WaitSeconds int
}

func (o PopOptions) queueName() string {
	if o.QueueName == "" {
		return DefaultQueueName
	}
	return o.QueueName
}

func (o PopOptions) invisible() int {
	if o.InvisibleSeconds <= 0 {
		return DefaultInvisibleSeconds
	}
	return o.InvisibleSeconds
}

package liteq

import "github.com/unkloud/liteq/store"

// Message represents a snapshot of one row in the live queue.
//
// Message is returned by Pop and Peek and passed to Delete and
// ProcessFailed. It should be treated as an immutable view of storage
// state at the moment it was read; mutating it has no effect on the
// underlying queue. The only way to change its state is through Delete,
// ProcessFailed, or another Pop.
//
// RetryCount is the number of delivery attempts prior to the one that
// produced this snapshot: 0 on first delivery, incremented on every
// subsequent Pop or ProcessFailed call that does not promote the row to
// the dead-letter queue.
//
// Message is a type alias for store.Message: the store package owns the
// concrete row shape, since it is the thing that marshals to and from
// SQLite; liteq re-exports it so callers never need to import store
// directly.
type Message = store.Message

// DeadMessage represents a snapshot of one row in the dead-letter table.
//
// ID is preserved from the originating Message, which is what makes
// Redrive deterministic.
type DeadMessage = store.DeadMessage

// Package liteq provides an embedded, durable, multi-consumer message
// queue backed by a single local SQLite file.
//
// # Overview
//
// liteq gives an in-process application the delivery semantics of a cloud
// queue service — at-least-once delivery, per-message visibility leases,
// retry counting, and a dead-letter sidetrack — without an external broker.
// Multiple goroutines inside one process, and (subject to SQLite's
// file-locking discipline) multiple processes on the same host, may
// concurrently enqueue and consume from the same queue file.
//
// liteq holds no in-memory queue structure that could diverge from disk:
// every operation is a short transaction against two tables, messages and
// dlq. See store.InitDB for the schema.
//
// # Delivery semantics
//
// liteq provides at-least-once processing. A message may be delivered more
// than once if a consumer crashes before acking, if the visibility lease
// expires before completion, or if the consumer explicitly nacks. Handlers
// must be idempotent.
//
// # Visibility lease
//
// When a message is popped, it is not deleted: its visible_after column is
// pushed into the future (the lease) and its retry_count is incremented.
// While the lease holds, the row is invisible to other Pop calls. If the
// consumer neither acks (Delete) nor nacks (ProcessFailed) before the lease
// expires, the row becomes visible again — a zombie redelivery, and a
// deliberate feature, not a bug.
//
// # Retry and dead-letter policy
//
// retry_count is incremented every time a lease is granted, not only on
// explicit nack: a crashed consumer is indistinguishable from one that
// nacked, so it must count the same way. A row whose retry_count would
// exceed MaxRetries is promoted to the dlq table in-line, during the same
// dequeue transaction that would otherwise have delivered it again.
//
// # Interfaces
//
// liteq defines the following primary interfaces, implemented by package
// store against SQLite:
//
//	Enqueuer   — Put / PutBatch
//	Dequeuer   — Pop / Peek / Delete / ProcessFailed
//	Maintainer — QSize / Clear / Redrive
//
// Queue wraps these into the consumer-facing API: Put, Pop, Peek, Delete,
// ProcessFailed, Consume, QSize, Empty, Join, Clear, Redrive.
//
// # Concurrency model
//
// Every public Queue/Store operation is synchronous and runs its own
// short-lived transaction on the store's single pooled connection; no
// transaction crosses a goroutine boundary, and no transaction is held
// across user code.
// Within a single consumer, successive Pop calls return messages in
// non-decreasing created_at order; across concurrent consumers there is no
// global FIFO guarantee, only exclusive delivery per lease.
//
// # Non-goals
//
// Fan-out/pub-sub, strict FIFO under contention, exactly-once delivery,
// priorities, cross-host clustering, streaming consumers, and in-memory-only
// operation are all explicitly out of scope.
package liteq

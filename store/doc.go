// Package store implements the liteq.Store contract on top of SQLite via
// github.com/uptrace/bun.
//
// # Overview
//
// The store persists two tables:
//
//   - messages — the live queue, one row per unpopped (or leased) message
//   - dlq      — the dead-letter sidetrack, one row per message that has
//     exhausted its retry budget
//
// A given id appears in at most one of the two tables at any committed
// state.
//
// # Concurrency model
//
// Every Store method opens its own transaction and closes it before
// returning; no bun.Tx crosses a goroutine boundary. Pop is the one
// operation that needs more than a single statement: it selects the
// eligible candidate, then either promotes it to dlq or extends its lease,
// inside one BEGIN IMMEDIATE transaction opened via the DSN's
// _txlock=immediate option (see Open), so the whole read-decide-write
// sequence serializes against any other writer.
//
// # Schema
//
// InitDB (or MustInitDB) creates the messages and dlq tables and the
// composite index messages(queue_name, visible_after, created_at) required
// for Pop/Peek to be sub-linear. InitDB is idempotent and runs inside a
// single transaction; it performs no destructive migrations.
//
// # Database lifecycle
//
// Open owns the *sql.DB and *bun.DB lifecycle: it sets the WAL, NORMAL
// synchronous, busy_timeout, and immediate-transaction pragmas this engine
// depends on, and rejects the ":memory:" sentinel, since every feature here
// assumes multiple independent connections observe the same durable state.
package store

package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"

	_ "modernc.org/sqlite"
)

// Config configures Open.
type Config struct {
	// MaxRetries is the maximum number of delivery attempts a message may
	// receive before it is promoted to the dead-letter queue.
	MaxRetries int

	// LockTimeout bounds how long a write transaction waits on SQLite's
	// write lock (the busy_timeout pragma) before failing with
	// SQLITE_BUSY.
	LockTimeout time.Duration

	// Debug attaches a bundebug query hook to the *bun.DB, logging every
	// statement. Open logs whether Writer is a terminal; it does not set
	// the hook's colouring.
	Debug bool

	// Writer receives debug query output. Defaults to os.Stderr.
	Writer io.Writer

	// Log receives store-level operational logging (lock contention,
	// DLQ promotions, and the like). Defaults to slog.Default().
	Log *slog.Logger
}

const inMemorySentinel = ":memory:"

// ErrInMemoryUnsupported is returned by Open when asked to open the
// SQLite in-memory sentinel. Every Store feature depends on crash-durable
// storage visible to multiple independent connections.
var ErrInMemoryUnsupported = fmt.Errorf("store: in-memory database is not supported")

// Store is the SQLite-backed implementation of liteq's backing-store
// contract.
type Store struct {
	db  *bun.DB
	log *slog.Logger
}

// Open opens path with the durability pragmas this engine requires (WAL
// journal mode, NORMAL synchronous, a busy_timeout derived from
// cfg.LockTimeout, and immediate-mode write transactions), creates the
// schema if absent, and returns a ready-to-use Store.
//
// Open rejects path == ":memory:".
func Open(ctx context.Context, path string, cfg Config) (*Store, error) {
	if path == inMemorySentinel {
		return nil, ErrInMemoryUnsupported
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	dsn := dsnFor(path, cfg.LockTimeout)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single modernc.org/sqlite connection per process is the
	// supported way to share one file across goroutines without the
	// driver multiplexing writers itself; concurrent writers still
	// serialize correctly through SQLite's own locking, just via this
	// one Go-level connection instead of a pool of them.
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if cfg.Debug {
		cfg.Log.Debug("query tracing enabled", "colorized", isatty.IsTerminal(fileDescriptor(cfg.Writer)))
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.WithWriter(cfg.Writer),
			bundebug.WithEnabled(true),
		))
	}

	if err := InitDB(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return &Store{db: db, log: cfg.Log}, nil
}

func dsnFor(path string, lockTimeout time.Duration) string {
	q := url.Values{}
	q.Set("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "busy_timeout("+strconv.FormatInt(lockTimeout.Milliseconds(), 10)+")")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

func fileDescriptor(w io.Writer) uintptr {
	type fdGetter interface {
		Fd() uintptr
	}
	if f, ok := w.(fdGetter); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}

// Close releases the underlying *sql.DB.
func (s *Store) Close() error {
	return s.db.Close()
}

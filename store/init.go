package store

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createMessagesTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*messageModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createDLQTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*dlqModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createPopIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*messageModel)(nil)).
		Index("idx_messages_pop").
		Column("queue_name", "visible_after", "created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createMessagesTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createDLQTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createPopIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitDB creates the messages and dlq tables and the composite index Pop
// and Peek need, inside a single transaction.
//
// InitDB is idempotent and may be called multiple times; it performs no
// destructive migrations.
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics on failure. Intended for
// application bootstrap where a broken schema is unrecoverable.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}

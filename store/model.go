package store

import (
	"time"

	"github.com/uptrace/bun"
)

type messageModel struct {
	bun.BaseModel `bun:"table:messages"`

	ID           string `bun:"id,pk"`
	QueueName    string `bun:"queue_name,notnull,default:'default'"`
	Data         []byte `bun:"data,notnull"`
	VisibleAfter int64  `bun:"visible_after,notnull"`
	RetryCount   int    `bun:"retry_count,notnull,default:0"`
	CreatedAt    int64  `bun:"created_at,notnull"`
}

type dlqModel struct {
	bun.BaseModel `bun:"table:dlq"`

	ID        string `bun:"id,pk"`
	QueueName string `bun:"queue_name"`
	Data      []byte `bun:"data"`
	FailedAt  int64  `bun:"failed_at"`
	Reason    string `bun:"reason"`
}

func epochSeconds(t time.Time) int64 {
	return t.Unix()
}

func fromEpochSeconds(s int64) time.Time {
	return time.Unix(s, 0).UTC()
}

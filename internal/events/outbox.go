package events

import (
	"context"

	"agg-server/internal/model"

	"github.com/jmoiron/sqlx"
)

// OutboxPublisher 把领域事件写入 outbox 表，由 worker 异步投递到 MQ。
// 事件与账本共用一个库，落库即视为发布成功（至少一次投递由分发器保证）。
type OutboxPublisher struct {
	db *sqlx.DB
}

func NewOutboxPublisher(db *sqlx.DB) *OutboxPublisher {
	return &OutboxPublisher{db: db}
}

func (p *OutboxPublisher) Publish(ctx context.Context, topic, bizKey string, payload any) error {
	return model.CreateOutbox(ctx, p.db, topic, bizKey, payload)
}

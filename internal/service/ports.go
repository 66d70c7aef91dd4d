package service

import (
	"context"

	"agg-server/internal/model"
)

// 对外端口与账本接口定义。
// service 层只消费接口；model.Store 满足 Ledger 与 Catalog，
// 钱包/玩家限额由 internal/wallet 的 HTTP 适配器满足。

// Balance 玩家余额快照（非本系统持久化，来自运营商钱包）
type Balance struct {
	Real     int64 // 系统最小单位
	Bonus    int64
	Currency string
}

func (b Balance) Total() int64 { return b.Real + b.Bonus }

// WalletPort 运营商钱包端口
type WalletPort interface {
	FindBalance(ctx context.Context, playerID string) (*Balance, error)
	Withdraw(ctx context.Context, playerID, txID, currency string, real, bonus int64) error
	Deposit(ctx context.Context, playerID, txID, currency string, real, bonus int64) error
	Rollback(ctx context.Context, playerID, txID string) error
}

// PlayerPort 玩家限额端口；无限额时 ok=false
type PlayerPort interface {
	FindCurrentBetLimit(ctx context.Context, playerID string) (limit int64, ok bool, err error)
}

// EventPublisher 领域事件发布端口（fire-and-forget，至少一次；
// model.Store 以 outbox 落库实现，由 worker 异步投递）
type EventPublisher interface {
	Publish(ctx context.Context, topic, bizKey string, payload any) error
}

// Ledger 会话/回合/账本仓储接口（model.Store 实现）
type Ledger interface {
	FindSessionByToken(ctx context.Context, token string) (*model.Session, error)
	CreateSession(ctx context.Context, sess *model.Session) error

	FindOrCreateRound(ctx context.Context, sessionID, gameID int64, extID string) (*model.Round, error)
	FindRound(ctx context.Context, sessionID int64, extID string) (*model.Round, error)
	FinishRound(ctx context.Context, roundID int64) error

	InsertSpin(ctx context.Context, sp *model.Spin) error
	FindSpinByExtTx(ctx context.Context, extTxID string, spinType int8) (*model.Spin, error)
	FindPlaceSpin(ctx context.Context, roundID int64) (*model.Spin, error)
	FindRollbackTarget(ctx context.Context, roundID int64) (*model.Spin, error)
	ListSpins(ctx context.Context, roundID int64, limit uint) ([]model.Spin, error)
	MarkSpinWalletFailed(ctx context.Context, spinID int64) error
}

// Catalog 目录读取与同步写入接口（model.Store 实现；目录主数据归属目录子系统）
type Catalog interface {
	FindAggregatorByIdentity(ctx context.Context, identity string) (*model.AggregatorInfo, error)
	FindAggregatorByID(ctx context.Context, id int64) (*model.AggregatorInfo, error)
	FindActiveAggregatorByType(ctx context.Context, aggType string) (*model.AggregatorInfo, error)
	FindProviderByID(ctx context.Context, id int64) (*model.Provider, error)
	FindGameByIdentity(ctx context.Context, identity string) (*model.Game, error)
	FindVariant(ctx context.Context, gameID, aggregatorID int64) (*model.GameVariant, error)

	UpsertProvider(ctx context.Context, p *model.Provider) (bool, error)
	UpsertGame(ctx context.Context, g *model.Game) (bool, error)
	UpsertVariant(ctx context.Context, v *model.GameVariant) error

	CreateFreespin(ctx context.Context, f *model.FreespinCampaign) error
	FindFreespinByExtID(ctx context.Context, extID string) (*model.FreespinCampaign, error)
	SetFreespinStatus(ctx context.Context, id int64, status string) error
	ListDueFreespins(ctx context.Context, nowMilli int64, limit int) ([]model.FreespinCampaign, error)
}

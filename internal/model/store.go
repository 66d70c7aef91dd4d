package model

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Store 将本包的 SQL 函数收拢为一个可注入的句柄，
// 供 service 层按接口消费（显式构造注入，不走全局容器）。
// 约定：单行查询未命中时返回 (nil, nil)，由上层翻译为业务错误。
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

func noRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// ---- 会话 ----

func (s *Store) FindSessionByToken(ctx context.Context, token string) (*Session, error) {
	sess, err := GetSessionByToken(ctx, s.db, token)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	return sess.Insert(ctx, s.db)
}

// ---- 回合/账本 ----

func (s *Store) FindOrCreateRound(ctx context.Context, sessionID, gameID int64, extID string) (*Round, error) {
	return FindOrCreateRound(ctx, s.db, sessionID, gameID, extID)
}

func (s *Store) FindRound(ctx context.Context, sessionID int64, extID string) (*Round, error) {
	r, err := GetRound(ctx, s.db, sessionID, extID)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (s *Store) FinishRound(ctx context.Context, roundID int64) error {
	return FinishRound(ctx, s.db, roundID)
}

func (s *Store) InsertSpin(ctx context.Context, sp *Spin) error {
	return sp.Insert(ctx, s.db)
}

func (s *Store) FindSpinByExtTx(ctx context.Context, extTxID string, spinType int8) (*Spin, error) {
	sp, err := GetSpinByExtTx(ctx, s.db, extTxID, spinType)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sp, nil
}

func (s *Store) FindPlaceSpin(ctx context.Context, roundID int64) (*Spin, error) {
	sp, err := GetPlaceSpin(ctx, s.db, roundID)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sp, nil
}

func (s *Store) FindRollbackTarget(ctx context.Context, roundID int64) (*Spin, error) {
	sp, err := GetRollbackTarget(ctx, s.db, roundID)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sp, nil
}

func (s *Store) ListSpins(ctx context.Context, roundID int64, limit uint) ([]Spin, error) {
	return ListSpinsByRound(ctx, s.db, roundID, limit)
}

func (s *Store) MarkSpinWalletFailed(ctx context.Context, spinID int64) error {
	return MarkSpinWalletFailed(ctx, s.db, spinID)
}

// ---- 目录（核心只读 + 同步 upsert）----

func (s *Store) FindAggregatorByIdentity(ctx context.Context, identity string) (*AggregatorInfo, error) {
	a, err := GetAggregatorByIdentity(ctx, s.db, identity)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) FindAggregatorByID(ctx context.Context, id int64) (*AggregatorInfo, error) {
	a, err := GetAggregatorByID(ctx, s.db, id)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) FindActiveAggregatorByType(ctx context.Context, aggType string) (*AggregatorInfo, error) {
	a, err := GetActiveAggregatorByType(ctx, s.db, aggType)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) FindProviderByID(ctx context.Context, id int64) (*Provider, error) {
	p, err := GetProviderByID(ctx, s.db, id)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) FindGameByIdentity(ctx context.Context, identity string) (*Game, error) {
	g, err := GetGameByIdentity(ctx, s.db, identity)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return g, nil
}

func (s *Store) FindVariant(ctx context.Context, gameID, aggregatorID int64) (*GameVariant, error) {
	v, err := GetVariant(ctx, s.db, gameID, aggregatorID)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (s *Store) UpsertProvider(ctx context.Context, p *Provider) (bool, error) {
	return UpsertProvider(ctx, s.db, p)
}

func (s *Store) UpsertGame(ctx context.Context, g *Game) (bool, error) {
	return UpsertGame(ctx, s.db, g)
}

func (s *Store) UpsertVariant(ctx context.Context, v *GameVariant) error {
	return UpsertVariant(ctx, s.db, v)
}

// ---- 免费旋转活动 ----

func (s *Store) CreateFreespin(ctx context.Context, f *FreespinCampaign) error {
	return f.Insert(ctx, s.db)
}

func (s *Store) FindFreespinByExtID(ctx context.Context, extID string) (*FreespinCampaign, error) {
	f, err := GetFreespinByExtID(ctx, s.db, extID)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) SetFreespinStatus(ctx context.Context, id int64, status string) error {
	return UpdateFreespinStatus(ctx, s.db, id, status)
}

func (s *Store) ListDueFreespins(ctx context.Context, nowMilli int64, limit int) ([]FreespinCampaign, error) {
	return ListDueFreespins(ctx, s.db, nowMilli, limit)
}

// ---- 事件/审计 ----

// Publish 实现事件发布端口：写 outbox，由 worker 异步投递
func (s *Store) Publish(ctx context.Context, topic, bizKey string, payload any) error {
	return CreateOutbox(ctx, s.db, topic, bizKey, payload)
}

func (s *Store) AuditCallback(ctx context.Context, c *CallbackAudit) error {
	return c.Insert(ctx, s.db)
}

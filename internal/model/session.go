package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Session 对应 sessions 表（玩家游戏会话）
// token 为本平台签发的不透明令牌（唯一键），后续所有投注/结算请求凭 token 解析会话；
// ext_token 为厂商侧令牌（可空）。会话创建后不可变。
type Session struct {
	ID           int64  `db:"id"`
	Token        string `db:"token"`     // 平台令牌（唯一键）
	ExtToken     string `db:"ext_token"` // 厂商令牌（可空）
	GameID       int64  `db:"game_id"`
	AggregatorID int64  `db:"aggregator_id"`
	PlayerID     string `db:"player_id"`
	Currency     string `db:"currency"`
	Locale       string `db:"locale"`
	Platform     string `db:"platform"` // desktop|mobile
	CreatedAt    int64  `db:"created_at"`
}

// Insert 新增会话
func (s *Session) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	s.CreatedAt = now
	sqlStr := "INSERT INTO sessions (token, ext_token, game_id, aggregator_id, player_id, currency, locale, platform, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	res, err := exec.ExecContext(ctx, sqlStr,
		s.Token, s.ExtToken, s.GameID, s.AggregatorID, s.PlayerID, s.Currency, s.Locale, s.Platform, now)
	if err != nil {
		return err
	}
	s.ID, _ = res.LastInsertId()
	return nil
}

// GetSessionByToken 按平台令牌查询会话
func GetSessionByToken(ctx context.Context, exec sqlx.ExtContext, token string) (*Session, error) {
	var s Session
	sqlStr := "SELECT id, token, ext_token, game_id, aggregator_id, player_id, currency, locale, platform, created_at FROM sessions WHERE token = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &s, sqlStr, token); err != nil {
		return nil, err
	}
	return &s, nil
}

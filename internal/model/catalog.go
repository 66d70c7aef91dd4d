package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// 目录表（providers/games/game_variants）由目录子系统维护；
// 核心只读 variant 做合法性校验，写路径仅限 game-sync 的 upsert。

// Provider 对应 providers 表
type Provider struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	AggregatorID int64  `db:"aggregator_id"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

// Game 对应 games 表
type Game struct {
	ID         int64  `db:"id"`
	Identity   string `db:"identity"` // 平台侧唯一游戏键
	ProviderID int64  `db:"provider_id"`
	Name       string `db:"name"`
	GameType   string `db:"game_type"` // slots|table|live|...
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// GameVariant 对应 game_variants 表（某游戏在某聚合商处的形态）
// 核心在调用厂商前读取它校验 locale/platform 支持与免费旋转资格；
// locales/platforms 为逗号分隔列表（目录子系统的存储约定）
type GameVariant struct {
	ID              int64  `db:"id"`
	GameID          int64  `db:"game_id"`
	AggregatorID    int64  `db:"aggregator_id"`
	Symbol          string `db:"symbol"` // 厂商侧游戏标识
	FreespinEnabled int8   `db:"freespin_enabled"`
	FreechipEnabled int8   `db:"freechip_enabled"`
	JackpotEnabled  int8   `db:"jackpot_enabled"`
	DemoEnabled     int8   `db:"demo_enabled"`
	BonusBuyEnabled int8   `db:"bonus_buy_enabled"`
	BonusBetEnabled int8   `db:"bonus_bet_enabled"` // 0=该游戏禁止用赠金投注
	Locales         string `db:"locales"`
	Platforms       string `db:"platforms"`
	Lines           int    `db:"lines"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

// GetProviderByID 按主键查询厂牌（解析游戏归属的聚合商）
func GetProviderByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*Provider, error) {
	var p Provider
	sqlStr := "SELECT id, name, aggregator_id, created_at, updated_at FROM providers WHERE id = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &p, sqlStr, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetGameByIdentity 按平台游戏键查询
func GetGameByIdentity(ctx context.Context, exec sqlx.ExtContext, identity string) (*Game, error) {
	var g Game
	sqlStr := "SELECT id, identity, provider_id, name, game_type, created_at, updated_at FROM games WHERE identity = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &g, sqlStr, identity); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetVariant 查询某游戏在某聚合商处的形态
func GetVariant(ctx context.Context, exec sqlx.ExtContext, gameID, aggregatorID int64) (*GameVariant, error) {
	var v GameVariant
	sqlStr := `SELECT id, game_id, aggregator_id, symbol, freespin_enabled, freechip_enabled, jackpot_enabled,
	           demo_enabled, bonus_buy_enabled, bonus_bet_enabled, locales, platforms, lines, created_at, updated_at
	           FROM game_variants WHERE game_id = ? AND aggregator_id = ? LIMIT 1`
	if err := sqlx.GetContext(ctx, exec, &v, sqlStr, gameID, aggregatorID); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpsertProvider 同步路径 upsert：按 (name, aggregator_id) 幂等。
// 返回 created=true 表示新插入（MySQL 对 upsert 插入分支 RowsAffected=1，更新分支=2）
func UpsertProvider(ctx context.Context, exec sqlx.ExtContext, p *Provider) (created bool, err error) {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO providers (name, aggregator_id, created_at, updated_at) VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), updated_at = VALUES(updated_at)`
	res, err := exec.ExecContext(ctx, sqlStr, p.Name, p.AggregatorID, now, now)
	if err != nil {
		return false, err
	}
	p.ID, _ = res.LastInsertId()
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// UpsertGame 同步路径 upsert：按 identity 幂等
func UpsertGame(ctx context.Context, exec sqlx.ExtContext, g *Game) (created bool, err error) {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO games (identity, provider_id, name, game_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), name = VALUES(name), game_type = VALUES(game_type), updated_at = VALUES(updated_at)`
	res, err := exec.ExecContext(ctx, sqlStr, g.Identity, g.ProviderID, g.Name, g.GameType, now, now)
	if err != nil {
		return false, err
	}
	g.ID, _ = res.LastInsertId()
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// UpsertVariant 同步路径 upsert：按 (aggregator_id, symbol) 幂等
func UpsertVariant(ctx context.Context, exec sqlx.ExtContext, v *GameVariant) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO game_variants (game_id, aggregator_id, symbol, freespin_enabled, freechip_enabled, jackpot_enabled,
	           demo_enabled, bonus_buy_enabled, bonus_bet_enabled, locales, platforms, lines, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), freespin_enabled = VALUES(freespin_enabled),
	           freechip_enabled = VALUES(freechip_enabled), jackpot_enabled = VALUES(jackpot_enabled),
	           demo_enabled = VALUES(demo_enabled), bonus_buy_enabled = VALUES(bonus_buy_enabled),
	           bonus_bet_enabled = VALUES(bonus_bet_enabled), locales = VALUES(locales),
	           platforms = VALUES(platforms), lines = VALUES(lines), updated_at = VALUES(updated_at)`
	res, err := exec.ExecContext(ctx, sqlStr,
		v.GameID, v.AggregatorID, v.Symbol, v.FreespinEnabled, v.FreechipEnabled, v.JackpotEnabled,
		v.DemoEnabled, v.BonusBuyEnabled, v.BonusBetEnabled, v.Locales, v.Platforms, v.Lines, now, now)
	if err != nil {
		return err
	}
	v.ID, _ = res.LastInsertId()
	return nil
}

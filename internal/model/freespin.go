package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// FreespinCampaign 对应 freespin_campaigns 表（免费旋转活动登记）
// ext_id 为厂商侧活动ID（唯一键，防止重复创建）；status 由 internal/state 状态机推进
type FreespinCampaign struct {
	ID           int64  `db:"id"`
	ExtID        string `db:"ext_id"` // 厂商活动ID（唯一键）
	AggregatorID int64  `db:"aggregator_id"`
	GameID       int64  `db:"game_id"`
	PlayerID     string `db:"player_id"`
	Currency     string `db:"currency"`
	SpinCount    int    `db:"spin_count"`
	BetPerSpin   int64  `db:"bet_per_spin"` // 最小单位
	PresetID     string `db:"preset_id"`
	Status       string `db:"status"`    // created|active|cancelled|expired
	ExpireAt     int64  `db:"expire_at"` // 毫秒时间戳，0=厂商默认有效期
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

// Insert 登记活动（ext_id 唯一键冲突即厂商侧重复创建）
func (f *FreespinCampaign) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO freespin_campaigns (ext_id, aggregator_id, game_id, player_id, currency, spin_count, bet_per_spin, preset_id, status, expire_at, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr,
		f.ExtID, f.AggregatorID, f.GameID, f.PlayerID, f.Currency, f.SpinCount, f.BetPerSpin, f.PresetID, f.Status, f.ExpireAt, now, now)
	if err != nil {
		return err
	}
	f.ID, _ = res.LastInsertId()
	return nil
}

// GetFreespinByExtID 按厂商活动ID查询
func GetFreespinByExtID(ctx context.Context, exec sqlx.ExtContext, extID string) (*FreespinCampaign, error) {
	var f FreespinCampaign
	sqlStr := `SELECT id, ext_id, aggregator_id, game_id, player_id, currency, spin_count, bet_per_spin, preset_id, status, expire_at, created_at, updated_at
	           FROM freespin_campaigns WHERE ext_id = ? LIMIT 1`
	if err := sqlx.GetContext(ctx, exec, &f, sqlStr, extID); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFreespinStatus 推进活动状态（状态合法性由调用方经状态机校验）
func UpdateFreespinStatus(ctx context.Context, exec sqlx.ExtContext, id int64, status string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE freespin_campaigns SET status = ?, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, status, now, id)
	return err
}

// ListDueFreespins 查询已到期待翻状态的活动
// 仅含 expire_at > 0（设置了显式有效期）且尚未进入终态的活动；
// 逐条推进由调用方完成，每条附带一次领域事件
func ListDueFreespins(ctx context.Context, exec sqlx.ExtContext, nowMilli int64, limit int) ([]FreespinCampaign, error) {
	var list []FreespinCampaign
	sqlStr := `SELECT id, ext_id, aggregator_id, game_id, player_id, currency, spin_count, bet_per_spin, preset_id, status, expire_at, created_at, updated_at
	           FROM freespin_campaigns
	           WHERE status IN ('created', 'active') AND expire_at > 0 AND expire_at <= ?
	           ORDER BY expire_at LIMIT ?`
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, nowMilli, limit); err != nil {
		return nil, err
	}
	return list, nil
}

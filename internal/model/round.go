package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Round 对应 rounds 表（单局游戏）
// 不变量：UNIQUE(session_id, ext_id) —— 厂商重试同一局的下注请求时，
// 幂等地落到同一行，绝不开出两局。finished 为终态，置位后不允许再投注/结算。
type Round struct {
	ID        int64  `db:"id"`
	SessionID int64  `db:"session_id"`
	GameID    int64  `db:"game_id"`
	ExtID     string `db:"ext_id"` // 厂商局ID
	Finished  int8   `db:"finished"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// FindOrCreateRound 原子地查找或创建回合。
// 并发对同一 (session_id, ext_id) 的 N 次调用必须收敛到同一行：
// 依赖唯一索引 + ON DUPLICATE KEY 的 LAST_INSERT_ID 写法，而不是先查后插。
// 注意：此处不加行锁，唯一约束是系统唯一的并发控制手段。
func FindOrCreateRound(ctx context.Context, exec sqlx.ExtContext, sessionID, gameID int64, extID string) (*Round, error) {
	now := time.Now().UnixMilli()
	sqlIns := `INSERT INTO rounds (session_id, game_id, ext_id, finished, created_at, updated_at)
	           VALUES (?, ?, ?, 0, ?, ?)
	           ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	if _, err := exec.ExecContext(ctx, sqlIns, sessionID, gameID, extID, now, now); err != nil {
		return nil, err
	}
	// LAST_INSERT_ID 在冲突分支被重写为既有行ID，这里统一回读整行
	return GetRound(ctx, exec, sessionID, extID)
}

// GetRound 按幂等键 (session_id, ext_id) 查询回合
func GetRound(ctx context.Context, exec sqlx.ExtContext, sessionID int64, extID string) (*Round, error) {
	var r Round
	sqlStr := "SELECT id, session_id, game_id, ext_id, finished, created_at, updated_at FROM rounds WHERE session_id = ? AND ext_id = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &r, sqlStr, sessionID, extID); err != nil {
		return nil, err
	}
	return &r, nil
}

// FinishRound 将回合置为终态（重复关闭为无操作，天然幂等）
func FinishRound(ctx context.Context, exec sqlx.ExtContext, roundID int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE rounds SET finished = 1, updated_at = ? WHERE id = ? AND finished = 0"
	_, err := exec.ExecContext(ctx, sqlStr, now, roundID)
	return err
}

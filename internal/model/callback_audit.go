package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// CallbackAudit 对应 callback_audit 表（厂商回调审计）
// 每一条厂商发起的资金回调（bet/result/refund/endRound/adjustment）都落一行，
// 保留原始参数快照与处理结果，便于对账与争议回溯
type CallbackAudit struct {
	ID         int64  `db:"id"`
	Aggregator string `db:"aggregator"` // 聚合商 identity
	Action     string `db:"action"`     // bet|result|refund|end_round|adjustment|balance|authenticate
	ExtRoundID string `db:"ext_round_id"`
	ExtTxID    string `db:"ext_tx_id"`
	Token      string `db:"token"`
	Payload    string `db:"payload"` // 原始参数快照(JSON)
	Result     string `db:"result"`  // success|<错误短语>
	TraceID    string `db:"trace_id"`
	CreatedAt  int64  `db:"created_at"`
}

// Insert
func (c *CallbackAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO callback_audit (aggregator, action, ext_round_id, ext_tx_id, token, payload, result, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr,
		c.Aggregator, c.Action, c.ExtRoundID, c.ExtTxID, c.Token, c.Payload, c.Result, c.TraceID, now)
	return err
}

package model

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"agg-server/common"

	goqu "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// Spin 对应 spins 表（追加式账本，行一旦写入不再修改金额，只被新行取代）
// spin_type: 1=place 下注 2=settle 结算 3=rollback 回滚；冗余 spin_type_str 便于查询
// status: 1=confirmed 2=wallet_failed（钱包扣款失败的补偿标记，见 MarkSpinWalletFailed）
// 不变量：
//   - UNIQUE(ext_tx_id, spin_type)：厂商交易号幂等键，重试请求命中唯一键冲突后回读首次结果
//   - UNIQUE(place_uniq)：place_uniq 仅在 place 行等于 round_id，其余为 NULL，
//     由此在约束层保证一局至多一条 PLACE
//   - settle/rollback 必须携带 ref_spin_id 指向被结算/被冲正的行
type Spin struct {
	ID          int64          `db:"id"`
	RoundID     sql.NullInt64  `db:"round_id"` // 孤立/纯免费旋转场景可为空
	SpinType    int8           `db:"spin_type"`
	SpinTypeStr string         `db:"spin_type_str"`
	Amount      int64          `db:"amount"`       // 请求金额（最小单位，审计用）
	RealAmount  int64          `db:"real_amount"`  // 真实资金分量
	BonusAmount int64          `db:"bonus_amount"` // 赠金分量
	Currency    string         `db:"currency"`
	ExtTxID     string         `db:"ext_tx_id"` // 厂商交易号
	RefSpinID   sql.NullInt64  `db:"ref_spin_id"`
	FreeSpinID  sql.NullString `db:"free_spin_id"` // 非空即"纯账本"免费旋转模式
	Status      int8           `db:"status"`
	PlaceUniq   sql.NullInt64  `db:"place_uniq"`
	CreatedAt   int64          `db:"created_at"`
}

const (
	SpinPlace    int8 = 1
	SpinSettle   int8 = 2
	SpinRollback int8 = 3

	SpinConfirmed    int8 = 1
	SpinWalletFailed int8 = 2
)

// SpinTypeString 数值码转字符串（双写冗余）
func SpinTypeString(code int8) string {
	switch code {
	case SpinPlace:
		return "place"
	case SpinSettle:
		return "settle"
	case SpinRollback:
		return "rollback"
	}
	return ""
}

// Insert 追加一条账本行；PLACE 行自动填充 place_uniq 以触发"一局一注"唯一约束
func (sp *Spin) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sp.CreatedAt = now
	if sp.SpinTypeStr == "" {
		sp.SpinTypeStr = SpinTypeString(sp.SpinType)
	}
	if sp.Status == 0 {
		sp.Status = SpinConfirmed
	}
	if sp.SpinType == SpinPlace && sp.RoundID.Valid {
		sp.PlaceUniq = sql.NullInt64{Int64: sp.RoundID.Int64, Valid: true}
	}
	sqlStr := `INSERT INTO spins (round_id, spin_type, spin_type_str, amount, real_amount, bonus_amount, currency, ext_tx_id, ref_spin_id, free_spin_id, status, place_uniq, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr,
		sp.RoundID, sp.SpinType, sp.SpinTypeStr, sp.Amount, sp.RealAmount, sp.BonusAmount,
		sp.Currency, sp.ExtTxID, sp.RefSpinID, sp.FreeSpinID, sp.Status, sp.PlaceUniq, now)
	if err != nil {
		return err
	}
	sp.ID, _ = res.LastInsertId()
	return nil
}

// GetSpinByExtTx 按厂商交易号+类型查询（幂等回读路径）
func GetSpinByExtTx(ctx context.Context, exec sqlx.ExtContext, extTxID string, spinType int8) (*Spin, error) {
	var sp Spin
	sqlStr := selectSpin + " WHERE ext_tx_id = ? AND spin_type = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &sp, sqlStr, extTxID, spinType); err != nil {
		return nil, err
	}
	return &sp, nil
}

// GetPlaceSpin 查询一局的 PLACE 行（至多一条）
func GetPlaceSpin(ctx context.Context, exec sqlx.ExtContext, roundID int64) (*Spin, error) {
	var sp Spin
	sqlStr := selectSpin + " WHERE round_id = ? AND spin_type = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &sp, sqlStr, roundID, SpinPlace); err != nil {
		return nil, err
	}
	return &sp, nil
}

// GetRollbackTarget 查询一局中"最后一条尚未被冲正的非 ROLLBACK 行"。
// 多次下注/结算并存时，冲正目标取最新未被引用的行，而不是笼统的"第一条"。
func GetRollbackTarget(ctx context.Context, exec sqlx.ExtContext, roundID int64) (*Spin, error) {
	var sp Spin
	sqlStr := selectSpin + ` WHERE round_id = ? AND spin_type != ?
	          AND id NOT IN (SELECT ref_spin_id FROM spins WHERE round_id = ? AND spin_type = ? AND ref_spin_id IS NOT NULL)
	          ORDER BY id DESC LIMIT 1`
	if err := sqlx.GetContext(ctx, exec, &sp, sqlStr, roundID, SpinRollback, roundID, SpinRollback); err != nil {
		return nil, err
	}
	return &sp, nil
}

// MarkSpinWalletFailed 钱包扣款失败的补偿标记：
// 账本行保留（记录一次"已尝试但未确认"的扣款），状态翻为 wallet_failed
func MarkSpinWalletFailed(ctx context.Context, exec sqlx.ExtContext, spinID int64) error {
	sqlStr := "UPDATE spins SET status = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, SpinWalletFailed, spinID)
	return err
}

// ListSpinsByRound 按写入顺序列出一局的全部账本行（客服/对账查询用，走 goqu 读路径）
func ListSpinsByRound(ctx context.Context, db *sqlx.DB, roundID int64, limit uint) ([]Spin, error) {
	var list []Spin
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "spins",
		Fields: common.EnumFields(Spin{}),
		Ex:     []exp.Expression{goqu.C("round_id").Eq(roundID)},
		Order:  []exp.OrderedExpression{goqu.C("id").Asc()},
		Limit:  limit,
	})
	return list, err
}

var selectSpin = "SELECT " + strings.Join([]string{
	"id", "round_id", "spin_type", "spin_type_str", "amount", "real_amount", "bonus_amount",
	"currency", "ext_tx_id", "ref_spin_id", "free_spin_id", "status", "place_uniq", "created_at",
}, ", ") + " FROM spins"

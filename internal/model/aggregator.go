package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// AggregatorInfo 对应 aggregators 表（聚合商接入配置）
// identity 为人工分配的唯一键（如 "evoplay-prod"）；type 为闭集枚举标签，
// 由 internal/aggregator 注册表解析为具体协议适配器。
// config 为不透明的字符串键值对（网关地址/密钥等），JSON 存储；
// 除 config 与 active 外，其余字段创建后不可变。
type AggregatorInfo struct {
	ID        int64  `db:"id"`
	Identity  string `db:"identity"` // 唯一人工键
	Type      string `db:"agg_type"` // 协议类型标签: evoplay|pragmatic|amigo
	Config    string `db:"config"`   // JSON 字符串键值对
	Active    int8   `db:"active"`   // 1=启用 0=停用
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// ConfigMap 解析 config 字段；解析失败返回空 map（缺失的键按空值处理）
func (a *AggregatorInfo) ConfigMap() map[string]string {
	m := map[string]string{}
	if a.Config != "" {
		_ = json.Unmarshal([]byte(a.Config), &m)
	}
	return m
}

// Insert 新增聚合商（identity 唯一键冲突即重复接入）
func (a *AggregatorInfo) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := "INSERT INTO aggregators (identity, agg_type, config, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	res, err := exec.ExecContext(ctx, sqlStr, a.Identity, a.Type, a.Config, a.Active, now, now)
	if err != nil {
		return err
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

// GetAggregatorByIdentity 按唯一人工键查询
func GetAggregatorByIdentity(ctx context.Context, exec sqlx.ExtContext, identity string) (*AggregatorInfo, error) {
	var a AggregatorInfo
	sqlStr := "SELECT id, identity, agg_type, config, active, created_at, updated_at FROM aggregators WHERE identity = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &a, sqlStr, identity); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAggregatorByID 按主键查询
func GetAggregatorByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*AggregatorInfo, error) {
	var a AggregatorInfo
	sqlStr := "SELECT id, identity, agg_type, config, active, created_at, updated_at FROM aggregators WHERE id = ? LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &a, sqlStr, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveAggregatorByType 按类型查询启用中的聚合商（厂商回调无 identity 时使用）
func GetActiveAggregatorByType(ctx context.Context, exec sqlx.ExtContext, aggType string) (*AggregatorInfo, error) {
	var a AggregatorInfo
	sqlStr := "SELECT id, identity, agg_type, config, active, created_at, updated_at FROM aggregators WHERE agg_type = ? AND active = 1 ORDER BY id ASC LIMIT 1"
	if err := sqlx.GetContext(ctx, exec, &a, sqlStr, aggType); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAggregatorConfig 仅更新可变字段（config/active）
func UpdateAggregatorConfig(ctx context.Context, exec sqlx.ExtContext, id int64, config string, active int8) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE aggregators SET config = ?, active = ?, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, config, active, now, id)
	return err
}

package aggregator

import (
	"context"
	"errors"
	"fmt"

	"agg-server/internal/model"
)

// 聚合商协议适配层。
// 每个厂商实现三种能力接口（启动链接/免费旋转/游戏同步）中的若干个，
// 统一由 Registry 按类型标签解析工厂；新增厂商只需要一个工厂加至多三个适配器，
// 不碰账本与编排逻辑。适配器无状态，仅捕获该聚合商的接入配置（网关/密钥）。

// Type 聚合商协议类型（闭集枚举）
type Type string

const (
	TypeEvoplay   Type = "evoplay"   // 共享密钥 RPC 协议
	TypePragmatic Type = "pragmatic" // MD5 签名表单协议
	TypeAmigo     Type = "amigo"     // 静态目录（厂商API未交付）
)

var (
	// ErrNotSupported 无对应类型的工厂注册
	ErrNotSupported = errors.New("aggregator type not supported")
	// ErrNotImplemented 该厂商尚未提供此能力
	ErrNotImplemented = errors.New("capability not implemented for this aggregator")
)

// UpstreamError 厂商侧失败（非成功应答/畸形应答/HTTP失败）
// 本层不做重试，原样上抛由接入方处置
type UpstreamError struct {
	Vendor string
	Action string
	Status int
	Msg    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s failed: status=%d %s", e.Vendor, e.Action, e.Status, e.Msg)
}

// VendorGame 厂商游戏列表的归一化行（game-sync 的产出）
type VendorGame struct {
	Symbol          string // 厂商侧标识
	Name            string
	Provider        string // 厂商侧游戏厂牌
	GameType        string
	FreespinEnabled bool
	FreechipEnabled bool
	JackpotEnabled  bool
	DemoEnabled     bool
	BonusBuyEnabled bool
	BonusBetEnabled bool
	Locales         []string
	Platforms       []string
	Lines           int
}

// LaunchInput 启动链接请求（参数为平面不可变结构，字段可选留空）
type LaunchInput struct {
	Symbol   string
	Token    string // 平台会话令牌，厂商回调时原样带回
	PlayerID string
	Currency string
	Locale   string
	Platform string
	LobbyURL string
	Demo     bool
}

// LaunchResult 启动链接应答
type LaunchResult struct {
	URL      string
	ExtToken string // 厂商令牌（部分厂商返回）
}

// FreespinPreset 厂商免费旋转预设
type FreespinPreset struct {
	ID         string
	BetPerSpin int64 // 系统最小单位
	SpinCount  int
	Currency   string
}

// CreateFreespinInput 创建免费旋转活动
type CreateFreespinInput struct {
	Symbol     string
	PlayerID   string
	Currency   string
	PresetID   string
	SpinCount  int
	BetPerSpin int64 // 系统最小单位
	ExpireAt   int64 // 毫秒时间戳，0=厂商默认
}

// LaunchAdapter 启动链接能力
type LaunchAdapter interface {
	LaunchURL(ctx context.Context, in LaunchInput) (*LaunchResult, error)
}

// FreespinAdapter 免费旋转能力
type FreespinAdapter interface {
	GetPreset(ctx context.Context, symbol, presetID string) (*FreespinPreset, error)
	Create(ctx context.Context, in CreateFreespinInput) (extID string, err error)
	Cancel(ctx context.Context, extID string) error
}

// GameSyncAdapter 游戏目录同步能力
type GameSyncAdapter interface {
	ListGames(ctx context.Context) ([]VendorGame, error)
}

// Factory 按聚合商配置构建三种适配器
type Factory interface {
	LaunchAdapter(info *model.AggregatorInfo) (LaunchAdapter, error)
	FreespinAdapter(info *model.AggregatorInfo) (FreespinAdapter, error)
	GameSyncAdapter(info *model.AggregatorInfo) (GameSyncAdapter, error)
}

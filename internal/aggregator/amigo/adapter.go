package amigo

import (
	"context"

	"agg-server/internal/aggregator"
	"agg-server/internal/model"
)

// amigo 尚未交付对接 API，目录为静态维护的清单；
// 启动链接与免费旋转能力统一返回 ErrNotImplemented，待厂商交付后替换

// staticGames 人工维护的游戏清单（与厂商商务侧对齐）
var staticGames = []aggregator.VendorGame{
	{
		Symbol: "amigo-fruit-blast", Name: "Fruit Blast", Provider: "amigo", GameType: "slot",
		DemoEnabled: true, BonusBetEnabled: true,
		Locales: []string{"en", "pt", "es"}, Platforms: []string{"desktop", "mobile"}, Lines: 20,
	},
	{
		Symbol: "amigo-lucky-pinata", Name: "Lucky Pinata", Provider: "amigo", GameType: "slot",
		DemoEnabled: true, BonusBetEnabled: true,
		Locales: []string{"en", "es"}, Platforms: []string{"desktop", "mobile"}, Lines: 25,
	},
	{
		Symbol: "amigo-aztec-gold", Name: "Aztec Gold", Provider: "amigo", GameType: "slot",
		JackpotEnabled: true, DemoEnabled: true, BonusBetEnabled: true,
		Locales: []string{"en", "es", "pt"}, Platforms: []string{"desktop", "mobile"}, Lines: 30,
	},
	{
		Symbol: "amigo-cantina-roulette", Name: "Cantina Roulette", Provider: "amigo", GameType: "table",
		DemoEnabled: false, BonusBetEnabled: false,
		Locales: []string{"en", "es"}, Platforms: []string{"desktop"},
	},
}

type gameSyncAdapter struct{}

func (gameSyncAdapter) ListGames(ctx context.Context) ([]aggregator.VendorGame, error) {
	out := make([]aggregator.VendorGame, len(staticGames))
	copy(out, staticGames)
	return out, nil
}

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) LaunchAdapter(info *model.AggregatorInfo) (aggregator.LaunchAdapter, error) {
	return nil, aggregator.ErrNotImplemented
}

func (f *Factory) FreespinAdapter(info *model.AggregatorInfo) (aggregator.FreespinAdapter, error) {
	return nil, aggregator.ErrNotImplemented
}

func (f *Factory) GameSyncAdapter(info *model.AggregatorInfo) (aggregator.GameSyncAdapter, error) {
	return gameSyncAdapter{}, nil
}

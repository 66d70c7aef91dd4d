package evoplay

import (
	"context"

	"agg-server/common/helper"
	"agg-server/internal/aggregator"
	"agg-server/internal/currency"
	"agg-server/internal/model"
)

// evoplay 金额单位为平台最小单位的 1/100（1 厂商单位 = 100 minor unit），
// 换算统一走 VendorUnit 因子，币种精度不参与

var unit = currency.VendorUnit{Scale: 100}

// ---- 启动链接 ----

type launchAdapter struct {
	cli *client
}

type launchResp struct {
	URL      string `json:"link"`
	ExtToken string `json:"session_token"`
}

func (a *launchAdapter) LaunchURL(ctx context.Context, in aggregator.LaunchInput) (*aggregator.LaunchResult, error) {
	params := map[string]string{
		"game":      in.Symbol,
		"token":     in.Token,
		"player_id": in.PlayerID,
		"currency":  in.Currency,
		"language":  in.Locale,
		"device":    in.Platform,
	}
	if in.Demo {
		params["demo"] = "1"
	}
	if in.LobbyURL != "" {
		params["exit_url"] = in.LobbyURL
	}

	var resp launchResp
	if err := a.cli.get(ctx, "game.launch", params, &resp); err != nil {
		return nil, err
	}
	return &aggregator.LaunchResult{URL: resp.URL, ExtToken: resp.ExtToken}, nil
}

// ---- 免费旋转 ----

type freespinAdapter struct {
	cli *client
}

type presetResp struct {
	ID        string `json:"preset_id"`
	Bet       string `json:"bet"` // 厂商单位的十进制字符串
	SpinCount int    `json:"spin_count"`
	Currency  string `json:"currency"`
}

func (a *freespinAdapter) GetPreset(ctx context.Context, symbol, presetID string) (*aggregator.FreespinPreset, error) {
	var resp presetResp
	err := a.cli.get(ctx, "freespin.preset", map[string]string{
		"game":      symbol,
		"preset_id": presetID,
	}, &resp)
	if err != nil {
		return nil, err
	}

	bet, ok := helper.ParseAmount(resp.Bet)
	if !ok {
		return nil, &aggregator.UpstreamError{Vendor: "evoplay", Action: "freespin.preset", Status: 200, Msg: "bad bet: " + resp.Bet}
	}
	return &aggregator.FreespinPreset{
		ID:         resp.ID,
		BetPerSpin: unit.FromVendor(bet, resp.Currency),
		SpinCount:  resp.SpinCount,
		Currency:   resp.Currency,
	}, nil
}

type createResp struct {
	CampaignID string `json:"campaign_id"`
}

func (a *freespinAdapter) Create(ctx context.Context, in aggregator.CreateFreespinInput) (string, error) {
	var resp createResp
	err := a.cli.postJSON(ctx, "freespin.create", map[string]interface{}{
		"game":       in.Symbol,
		"player_id":  in.PlayerID,
		"currency":   in.Currency,
		"preset_id":  in.PresetID,
		"spin_count": in.SpinCount,
		"bet":        unit.ToVendor(in.BetPerSpin, in.Currency).String(),
		"expire_at":  in.ExpireAt,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.CampaignID, nil
}

func (a *freespinAdapter) Cancel(ctx context.Context, extID string) error {
	return a.cli.postJSON(ctx, "freespin.cancel", map[string]interface{}{
		"campaign_id": extID,
	}, nil)
}

// ---- 游戏同步 ----

type gameSyncAdapter struct {
	cli *client
}

type vendorGame struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Provider  string   `json:"provider"`
	Type      string   `json:"type"`
	Freespin  bool     `json:"freespin"`
	Freechip  bool     `json:"freechip"`
	Jackpot   bool     `json:"jackpot"`
	Demo      bool     `json:"demo"`
	BonusBuy  bool     `json:"bonus_buy"`
	Languages []string `json:"languages"`
	Devices   []string `json:"devices"`
	Lines     int      `json:"lines"`
}

type gamesResp struct {
	Games []vendorGame `json:"games"`
}

func (a *gameSyncAdapter) ListGames(ctx context.Context) ([]aggregator.VendorGame, error) {
	var resp gamesResp
	if err := a.cli.get(ctx, "game.list", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]aggregator.VendorGame, 0, len(resp.Games))
	for _, g := range resp.Games {
		provider := g.Provider
		if provider == "" {
			provider = "evoplay"
		}
		out = append(out, aggregator.VendorGame{
			Symbol:          g.ID,
			Name:            g.Name,
			Provider:        provider,
			GameType:        g.Type,
			FreespinEnabled: g.Freespin,
			FreechipEnabled: g.Freechip,
			JackpotEnabled:  g.Jackpot,
			DemoEnabled:     g.Demo,
			BonusBuyEnabled: g.BonusBuy,
			BonusBetEnabled: true,
			Locales:         g.Languages,
			Platforms:       g.Devices,
			Lines:           g.Lines,
		})
	}
	return out, nil
}

// ---- 工厂 ----

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) LaunchAdapter(info *model.AggregatorInfo) (aggregator.LaunchAdapter, error) {
	cli, err := newClient(info.ConfigMap())
	if err != nil {
		return nil, err
	}
	return &launchAdapter{cli: cli}, nil
}

func (f *Factory) FreespinAdapter(info *model.AggregatorInfo) (aggregator.FreespinAdapter, error) {
	cli, err := newClient(info.ConfigMap())
	if err != nil {
		return nil, err
	}
	return &freespinAdapter{cli: cli}, nil
}

func (f *Factory) GameSyncAdapter(info *model.AggregatorInfo) (aggregator.GameSyncAdapter, error) {
	cli, err := newClient(info.ConfigMap())
	if err != nil {
		return nil, err
	}
	return &gameSyncAdapter{cli: cli}, nil
}

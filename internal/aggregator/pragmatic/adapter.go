package pragmatic

import (
	"context"
	"strings"

	"agg-server/common"
	"agg-server/common/helper"
	"agg-server/internal/aggregator"
	"agg-server/internal/currency"
	"agg-server/internal/model"
)

// pragmatic 三能力适配器共享同一个签名客户端；金额按币种精度走基础换算（无厂商单位因子）

var unit = currency.VendorUnit{Scale: 1}

// ---- 启动链接 ----

type launchAdapter struct {
	cli *client
}

type gameURLResp struct {
	baseResp
	GameURL string `json:"gameURL"`
}

func (a *launchAdapter) LaunchURL(ctx context.Context, in aggregator.LaunchInput) (*aggregator.LaunchResult, error) {
	params := map[string]string{
		"symbol":           in.Symbol,
		"token":            in.Token,
		"externalPlayerId": in.PlayerID,
		"currency":         in.Currency,
		"language":         in.Locale,
		"platform":         platformTag(in.Platform),
		"playMode":         "REAL",
	}
	if in.Demo {
		params["playMode"] = "DEMO"
	}
	if in.LobbyURL != "" {
		params["lobbyUrl"] = in.LobbyURL
	}

	var resp gameURLResp
	if err := a.cli.postForm(ctx, "/game/url", params, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, a.cli.fail("/game/url", resp.baseResp)
	}
	return &aggregator.LaunchResult{URL: resp.GameURL}, nil
}

// platformTag 平台标签归一化为厂商取值
func platformTag(p string) string {
	if strings.EqualFold(p, "mobile") {
		return "MOBILE"
	}
	return "WEB"
}

// ---- 免费旋转 ----

type freespinAdapter struct {
	cli *client
}

type presetResp struct {
	baseResp
	PresetID  string `json:"presetId"`
	BetValue  string `json:"betValue"` // 十进制字符串
	SpinCount int    `json:"rounds"`
	Currency  string `json:"currency"`
}

func (a *freespinAdapter) GetPreset(ctx context.Context, symbol, presetID string) (*aggregator.FreespinPreset, error) {
	params := map[string]string{
		"symbol":   symbol,
		"presetId": presetID,
	}
	var resp presetResp
	if err := a.cli.postForm(ctx, "/freeRounds/preset", params, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, a.cli.fail("/freeRounds/preset", resp.baseResp)
	}

	bet, ok := helper.ParseAmount(resp.BetValue)
	if !ok {
		return nil, &aggregator.UpstreamError{Vendor: "pragmatic", Action: "/freeRounds/preset", Status: 200, Msg: "bad betValue: " + resp.BetValue}
	}
	return &aggregator.FreespinPreset{
		ID:         resp.PresetID,
		BetPerSpin: unit.FromVendor(bet, resp.Currency),
		SpinCount:  resp.SpinCount,
		Currency:   resp.Currency,
	}, nil
}

type createResp struct {
	baseResp
	BonusCode string `json:"bonusCode"`
}

// Create 创建免费旋转活动：签名参数走查询串，活动明细走 JSON 正文（厂商双载荷形态）
func (a *freespinAdapter) Create(ctx context.Context, in aggregator.CreateFreespinInput) (string, error) {
	params := map[string]string{
		"symbol":   in.Symbol,
		"playerId": in.PlayerID,
		"currency": in.Currency,
	}
	body, err := common.JsonMarshal(map[string]interface{}{
		"presetId": in.PresetID,
		"rounds":   in.SpinCount,
		"betValue": unit.ToVendor(in.BetPerSpin, in.Currency).String(),
		"currency": in.Currency,
		"playerId": in.PlayerID,
		"expireAt": in.ExpireAt,
	})
	if err != nil {
		return "", err
	}

	var resp createResp
	if err := a.cli.post(ctx, "/freeRounds/create", params, body, &resp); err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", a.cli.fail("/freeRounds/create", resp.baseResp)
	}
	return resp.BonusCode, nil
}

func (a *freespinAdapter) Cancel(ctx context.Context, extID string) error {
	params := map[string]string{
		"bonusCode": extID,
	}
	var resp baseResp
	if err := a.cli.postForm(ctx, "/freeRounds/cancel", params, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return a.cli.fail("/freeRounds/cancel", resp)
	}
	return nil
}

// ---- 游戏同步 ----

type gameSyncAdapter struct {
	cli *client
}

type casinoGame struct {
	GameID       string `json:"gameID"`
	GameName     string `json:"gameName"`
	GameTypeID   string `json:"gameTypeID"`
	Lines        int    `json:"lines"`
	FrbAvailable bool   `json:"frbAvailable"` // free round bonus
	FcAvailable  bool   `json:"fcAvailable"`  // free chip
	JackpotFlag  bool   `json:"jackpot"`
	DemoGame     bool   `json:"demoGameAvailable"`
	BuyFeature   bool   `json:"buyFeature"`
	Platforms    string `json:"platform"` // 逗号分隔: WEB,MOBILE
}

type gamesResp struct {
	baseResp
	GameList []casinoGame `json:"gameList"`
}

func (a *gameSyncAdapter) ListGames(ctx context.Context) ([]aggregator.VendorGame, error) {
	var resp gamesResp
	if err := a.cli.postForm(ctx, "/getCasinoGames", map[string]string{"options": "GetFrbDetails"}, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, a.cli.fail("/getCasinoGames", resp.baseResp)
	}

	out := make([]aggregator.VendorGame, 0, len(resp.GameList))
	for _, g := range resp.GameList {
		platforms := []string{"desktop"}
		if strings.Contains(strings.ToUpper(g.Platforms), "MOBILE") {
			platforms = append(platforms, "mobile")
		}
		out = append(out, aggregator.VendorGame{
			Symbol:          g.GameID,
			Name:            g.GameName,
			Provider:        "pragmatic",
			GameType:        g.GameTypeID,
			FreespinEnabled: g.FrbAvailable,
			FreechipEnabled: g.FcAvailable,
			JackpotEnabled:  g.JackpotFlag,
			DemoEnabled:     g.DemoGame,
			BonusBuyEnabled: g.BuyFeature,
			BonusBetEnabled: true,
			Locales:         []string{"en"},
			Platforms:       platforms,
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

package service

import (
	"context"
	"fmt"
	"time"

	"agg-server/common/helper"
	"agg-server/internal/aggregator"
	"agg-server/internal/metrics"
	"agg-server/internal/model"

	"github.com/google/uuid"
)

// 会话开启与查询。开启前先对照 variant 校验 locale/platform 支持，
// 再调厂商 Launch 适配器取启动链接，最后落会话（平台令牌为 uuid）。

// OpenSessionInput 开启会话输入
type OpenSessionInput struct {
	GameIdentity string
	PlayerID     string
	Currency     string
	Locale       string
	Platform     string // desktop|mobile
	LobbyURL     string
	Demo         bool
	TraceID      string
}

// OpenSessionOutput 开启会话输出
type OpenSessionOutput struct {
	Token     string `json:"token"`
	LaunchURL string `json:"launch_url"`
}

type SessionService interface {
	Open(ctx context.Context, in OpenSessionInput) (*OpenSessionOutput, error)
	FindByToken(ctx context.Context, token string) (*model.Session, error)
}

type sessionService struct {
	ledger   Ledger
	catalog  Catalog
	registry *aggregator.Registry
	events   EventPublisher
}

func NewSessionService(ledger Ledger, catalog Catalog, registry *aggregator.Registry, events EventPublisher) SessionService {
	return &sessionService{ledger: ledger, catalog: catalog, registry: registry, events: events}
}

// Open 开启会话主流程
func (s *sessionService) Open(ctx context.Context, in OpenSessionInput) (*OpenSessionOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, "open_session", start) }()

	fmt.Printf("[Session] 收到开启会话请求: game=%s, player_id=%s, locale=%s, platform=%s, trace_id=%s\n",
		in.GameIdentity, in.PlayerID, in.Locale, in.Platform, in.TraceID)

	game, err := s.catalog.FindGameByIdentity(ctx, in.GameIdentity)
	if err != nil {
		return nil, err
	}
	if game == nil {
		fmt.Printf("[Session] 游戏不存在: game=%s, trace_id=%s\n", in.GameIdentity, in.TraceID)
		return nil, ErrGameNotFound
	}

	// 游戏归属的厂牌决定聚合商
	agg, err := s.resolveAggregator(ctx, game)
	if err != nil {
		return nil, err
	}

	variant, err := s.catalog.FindVariant(ctx, game.ID, agg.ID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		fmt.Printf("[Session] 游戏在该聚合商无形态: game_id=%d, aggregator_id=%d, trace_id=%s\n",
			game.ID, agg.ID, in.TraceID)
		return nil, ErrGameNotFound
	}

	// locale/platform 合法性校验（目录为逗号分隔清单）
	if !helper.ContainsFold(helper.SplitCSV(variant.Locales), in.Locale) {
		fmt.Printf("[Session] 语言不支持: locale=%s, supported=%s, trace_id=%s\n",
			in.Locale, variant.Locales, in.TraceID)
		return nil, ErrLocaleUnsupported
	}
	if !helper.ContainsFold(helper.SplitCSV(variant.Platforms), in.Platform) {
		fmt.Printf("[Session] 平台不支持: platform=%s, supported=%s, trace_id=%s\n",
			in.Platform, variant.Platforms, in.TraceID)
		return nil, ErrDeviceUnsupported
	}

	factory, err := s.registry.Resolve(aggregator.Type(agg.Type))
	if err != nil {
		return nil, err
	}
	launcher, err := factory.LaunchAdapter(agg)
	if err != nil {
		return nil, err
	}

	token := uuid.New().String()
	launch, err := launcher.LaunchURL(ctx, aggregator.LaunchInput{
		Symbol:   variant.Symbol,
		Token:    token,
		PlayerID: in.PlayerID,
		Currency: in.Currency,
		Locale:   in.Locale,
		Platform: in.Platform,
		LobbyURL: in.LobbyURL,
		Demo:     in.Demo,
	})
	if err != nil {
		fmt.Printf("[Session] 厂商启动链接失败: game=%s, error=%v, trace_id=%s\n",
			in.GameIdentity, err, in.TraceID)
		return nil, err
	}

	sess := &model.Session{
		Token:        token,
		ExtToken:     launch.ExtToken,
		GameID:       game.ID,
		AggregatorID: agg.ID,
		PlayerID:     in.PlayerID,
		Currency:     in.Currency,
		Locale:       in.Locale,
		Platform:     in.Platform,
	}
	if err := s.ledger.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.events.Publish(ctx, "session_opened", token, map[string]any{
		"event":      "session_opened",
		"session_id": sess.ID,
		"game_id":    game.ID,
		"player_id":  in.PlayerID,
		"trace_id":   in.TraceID,
	}); err != nil {
		fmt.Printf("[Session] 写入事件失败: error=%v, trace_id=%s\n", err, in.TraceID)
	}

	fmt.Printf("[Session] 会话已开启: session_id=%d, token=%s, trace_id=%s\n", sess.ID, token, in.TraceID)
	result = "success"
	// 部分厂商返回相对启动路径，统一按聚合商网关补全
	launchURL := helper.BuildFullURL(agg.ConfigMap()["gateway"], launch.URL)
	return &OpenSessionOutput{Token: token, LaunchURL: launchURL}, nil
}

func (s *sessionService) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	sess, err := s.ledger.FindSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// resolveAggregator 按游戏厂牌解析聚合商配置
func (s *sessionService) resolveAggregator(ctx context.Context, game *model.Game) (*model.AggregatorInfo, error) {
	provider, err := s.catalog.FindProviderByID(ctx, game.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrAggregatorNotFound
	}
	agg, err := s.catalog.FindAggregatorByID(ctx, provider.AggregatorID)
	if err != nil {
		return nil, err
	}
	if agg == nil || agg.Active != 1 {
		return nil, ErrAggregatorNotFound
	}
	return agg, nil
}

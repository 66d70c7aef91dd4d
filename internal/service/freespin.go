package service

import (
	"context"
	"fmt"
	"time"

	"agg-server/internal/aggregator"
	"agg-server/internal/metrics"
	"agg-server/internal/model"
	"agg-server/internal/state"

	mysqlerr "github.com/go-sql-driver/mysql"
)

// 免费旋转活动：预设查询 / 创建 / 取消。
// 创建前校验游戏开启了免费旋转；活动在厂商侧创建成功后本地登记，
// 状态由 internal/state 状态机推进。

// CreateFreespinCmd 创建活动输入
type CreateFreespinCmd struct {
	GameIdentity string
	PlayerID     string
	Currency     string
	PresetID     string
	SpinCount    int
	BetPerSpin   int64 // 系统最小单位
	ExpireAt     int64 // 毫秒时间戳，0=厂商默认
	TraceID      string
}

type FreespinService interface {
	GetPreset(ctx context.Context, gameIdentity, presetID string) (*aggregator.FreespinPreset, error)
	Create(ctx context.Context, cmd CreateFreespinCmd) (*model.FreespinCampaign, error)
	Cancel(ctx context.Context, extID, traceID string) error
	ExpireDue(ctx context.Context) (int, error)
}

type freespinService struct {
	catalog  Catalog
	registry *aggregator.Registry
	events   EventPublisher
}

func NewFreespinService(catalog Catalog, registry *aggregator.Registry, events EventPublisher) FreespinService {
	return &freespinService{catalog: catalog, registry: registry, events: events}
}

// resolveGame 解析游戏/聚合商/形态并校验免费旋转资格
func (s *freespinService) resolveGame(ctx context.Context, gameIdentity string) (*model.Game, *model.AggregatorInfo, *model.GameVariant, error) {
	game, err := s.catalog.FindGameByIdentity(ctx, gameIdentity)
	if err != nil {
		return nil, nil, nil, err
	}
	if game == nil {
		return nil, nil, nil, ErrGameNotFound
	}

	provider, err := s.catalog.FindProviderByID(ctx, game.ProviderID)
	if err != nil {
		return nil, nil, nil, err
	}
	if provider == nil {
		return nil, nil, nil, ErrAggregatorNotFound
	}
	agg, err := s.catalog.FindAggregatorByID(ctx, provider.AggregatorID)
	if err != nil {
		return nil, nil, nil, err
	}
	if agg == nil || agg.Active != 1 {
		return nil, nil, nil, ErrAggregatorNotFound
	}

	variant, err := s.catalog.FindVariant(ctx, game.ID, agg.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if variant == nil {
		return nil, nil, nil, ErrGameNotFound
	}
	if variant.FreespinEnabled == 0 {
		return nil, nil, nil, ErrFreespinNotEnabled
	}
	return game, agg, variant, nil
}

func (s *freespinService) adapter(agg *model.AggregatorInfo) (aggregator.FreespinAdapter, error) {
	factory, err := s.registry.Resolve(aggregator.Type(agg.Type))
	if err != nil {
		return nil, err
	}
	return factory.FreespinAdapter(agg)
}

func (s *freespinService) GetPreset(ctx context.Context, gameIdentity, presetID string) (*aggregator.FreespinPreset, error) {
	_, agg, variant, err := s.resolveGame(ctx, gameIdentity)
	if err != nil {
		return nil, err
	}
	ad, err := s.adapter(agg)
	if err != nil {
		return nil, err
	}
	return ad.GetPreset(ctx, variant.Symbol, presetID)
}

// Create 创建活动主流程：先厂商后本地，本地登记失败时尽力取消厂商侧活动
func (s *freespinService) Create(ctx context.Context, cmd CreateFreespinCmd) (*model.FreespinCampaign, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, "freespin_create", start) }()

	fmt.Printf("[Freespin] 收到创建请求: game=%s, player_id=%s, spins=%d, bet=%d, trace_id=%s\n",
		cmd.GameIdentity, cmd.PlayerID, cmd.SpinCount, cmd.BetPerSpin, cmd.TraceID)

	if cmd.SpinCount <= 0 || cmd.BetPerSpin <= 0 {
		return nil, ErrInvalidAmount
	}

	game, agg, variant, err := s.resolveGame(ctx, cmd.GameIdentity)
	if err != nil {
		return nil, err
	}
	ad, err := s.adapter(agg)
	if err != nil {
		return nil, err
	}

	extID, err := ad.Create(ctx, aggregator.CreateFreespinInput{
		Symbol:     variant.Symbol,
		PlayerID:   cmd.PlayerID,
		Currency:   cmd.Currency,
		PresetID:   cmd.PresetID,
		SpinCount:  cmd.SpinCount,
		BetPerSpin: cmd.BetPerSpin,
		ExpireAt:   cmd.ExpireAt,
	})
	if err != nil {
		fmt.Printf("[Freespin] 厂商创建失败: game=%s, error=%v, trace_id=%s\n",
			cmd.GameIdentity, err, cmd.TraceID)
		return nil, err
	}

	campaign := &model.FreespinCampaign{
		ExtID:        extID,
		AggregatorID: agg.ID,
		GameID:       game.ID,
		PlayerID:     cmd.PlayerID,
		Currency:     cmd.Currency,
		SpinCount:    cmd.SpinCount,
		BetPerSpin:   cmd.BetPerSpin,
		PresetID:     cmd.PresetID,
		Status:       state.StateCreated,
		ExpireAt:     cmd.ExpireAt,
	}
	if err := s.catalog.CreateFreespin(ctx, campaign); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			// 厂商侧重复创建返回了同一活动ID，回读既有登记
			prev, e := s.catalog.FindFreespinByExtID(ctx, extID)
			if e == nil && prev != nil {
				result = "success"
				return prev, nil
			}
		}
		// 本地登记失败，尽力取消厂商侧活动，避免孤儿活动
		fmt.Printf("[Freespin] 本地登记失败，尝试取消厂商活动: ext_id=%s, error=%v, trace_id=%s\n",
			extID, err, cmd.TraceID)
		if ce := ad.Cancel(ctx, extID); ce != nil {
			fmt.Printf("[Freespin] 取消厂商活动失败: ext_id=%s, error=%v, trace_id=%s\n",
				extID, ce, cmd.TraceID)
		}
		return nil, fmt.Errorf("register freespin: %w", err)
	}

	if err := s.events.Publish(ctx, "freespin_added", extID, map[string]any{
		"event":     "freespin_added",
		"ext_id":    extID,
		"game_id":   game.ID,
		"player_id": cmd.PlayerID,
		"trace_id":  cmd.TraceID,
	}); err != nil {
		fmt.Printf("[Freespin] 写入事件失败: error=%v, trace_id=%s\n", err, cmd.TraceID)
	}

	fmt.Printf("[Freespin] 活动已创建: ext_id=%s, campaign_id=%d, trace_id=%s\n",
		extID, campaign.ID, cmd.TraceID)
	result = "success"
	return campaign, nil
}

// Cancel 取消活动：先厂商后本地状态推进；终态活动直接幂等返回
func (s *freespinService) Cancel(ctx context.Context, extID, traceID string) error {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordSpin(result, "freespin_cancel", start) }()

	campaign, err := s.catalog.FindFreespinByExtID(ctx, extID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return ErrFreespinNotFound
	}
	if campaign.Status == state.StateCancelled {
		result = "success"
		return nil
	}

	next, err := state.NextState(campaign.Status, state.EvtCancel)
	if err != nil {
		fmt.Printf("[Freespin] 状态不允许取消: ext_id=%s, status=%s, trace_id=%s\n",
			extID, campaign.Status, traceID)
		return err
	}

	agg, err := s.catalog.FindAggregatorByID(ctx, campaign.AggregatorID)
	if err != nil {
		return err
	}
	if agg == nil {
		return ErrAggregatorNotFound
	}
	ad, err := s.adapter(agg)
	if err != nil {
		return err
	}

	if err := ad.Cancel(ctx, extID); err != nil {
		fmt.Printf("[Freespin] 厂商取消失败: ext_id=%s, error=%v, trace_id=%s\n", extID, err, traceID)
		return err
	}

	if err := s.catalog.SetFreespinStatus(ctx, campaign.ID, next); err != nil {
		return err
	}

	if err := s.events.Publish(ctx, "freespin_removed", extID, map[string]any{
		"event":    "freespin_removed",
		"ext_id":   extID,
		"trace_id": traceID,
	}); err != nil {
		fmt.Printf("[Freespin] 写入事件失败: error=%v, trace_id=%s\n", err, traceID)
	}

	fmt.Printf("[Freespin] 活动已取消: ext_id=%s, trace_id=%s\n", extID, traceID)
	result = "success"
	return nil
}

// ExpireDue 到期清扫：逐条将到期活动经状态机翻为 expired，
// 每条附带一次 freespin_removed 事件；返回本轮翻转条数
func (s *freespinService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.catalog.ListDueFreespins(ctx, time.Now().UnixMilli(), 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		campaign := &due[i]
		next, err := state.NextState(campaign.Status, state.EvtExpire)
		if err != nil {
			continue
		}
		if err := s.catalog.SetFreespinStatus(ctx, campaign.ID, next); err != nil {
			fmt.Printf("[Freespin] 到期翻状态失败: ext_id=%s, error=%v\n", campaign.ExtID, err)
			continue
		}
		expired++

		if err := s.events.Publish(ctx, "freespin_removed", campaign.ExtID, map[string]any{
			"event":     "freespin_removed",
			"reason":    "expired",
			"ext_id":    campaign.ExtID,
			"game_id":   campaign.GameID,
			"player_id": campaign.PlayerID,
		}); err != nil {
			fmt.Printf("[Freespin] 写入事件失败: ext_id=%s, error=%v\n", campaign.ExtID, err)
		}
	}
	return expired, nil
}

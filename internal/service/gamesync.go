package service

import (
	"context"
	"fmt"
	"time"

	"agg-server/common/helper"
	"agg-server/internal/aggregator"
	"agg-server/internal/metrics"
	"agg-server/internal/model"
)

// 游戏目录同步：拉取厂商游戏清单，归一化为 provider/game/variant 三级 upsert。
// 目录主数据归属目录子系统，这里只做同步触发与落库。

// SyncReport 同步结果统计
type SyncReport struct {
	Aggregator       string `json:"aggregator"`
	ProvidersCreated int    `json:"providers_created"`
	GamesCreated     int    `json:"games_created"`
	GamesUpdated     int    `json:"games_updated"`
}

type GameSyncService interface {
	Sync(ctx context.Context, aggregatorIdentity, traceID string) (*SyncReport, error)
}

type gameSyncService struct {
	catalog  Catalog
	registry *aggregator.Registry
}

func NewGameSyncService(catalog Catalog, registry *aggregator.Registry) GameSyncService {
	return &gameSyncService{catalog: catalog, registry: registry}
}

// Sync 同步主流程
func (s *gameSyncService) Sync(ctx context.Context, aggregatorIdentity, traceID string) (*SyncReport, error) {

	start := time.Now()
	var retErr error
	report := &SyncReport{Aggregator: aggregatorIdentity}
	defer func() {
		metrics.RecordSync(aggregatorIdentity, report.GamesCreated, report.GamesUpdated, retErr, start)
	}()

	fmt.Printf("[Sync] 开始目录同步: aggregator=%s, trace_id=%s\n", aggregatorIdentity, traceID)

	agg, err := s.catalog.FindAggregatorByIdentity(ctx, aggregatorIdentity)
	if err != nil {
		retErr = err
		return nil, err
	}
	if agg == nil {
		retErr = ErrAggregatorNotFound
		return nil, ErrAggregatorNotFound
	}

	factory, err := s.registry.Resolve(aggregator.Type(agg.Type))
	if err != nil {
		retErr = err
		return nil, err
	}
	syncer, err := factory.GameSyncAdapter(agg)
	if err != nil {
		retErr = err
		return nil, err
	}

	games, err := syncer.ListGames(ctx)
	if err != nil {
		fmt.Printf("[Sync] 拉取厂商清单失败: aggregator=%s, error=%v, trace_id=%s\n",
			aggregatorIdentity, err, traceID)
		retErr = err
		return nil, err
	}

	// 厂牌按名称去重 upsert，游戏与形态逐条 upsert
	providerIDs := map[string]int64{}
	for _, vg := range games {
		pid, ok := providerIDs[vg.Provider]
		if !ok {
			p := &model.Provider{Name: vg.Provider, AggregatorID: agg.ID}
			created, err := s.catalog.UpsertProvider(ctx, p)
			if err != nil {
				retErr = err
				return nil, fmt.Errorf("upsert provider %s: %w", vg.Provider, err)
			}
			if created {
				report.ProvidersCreated++
			}
			pid = p.ID
			providerIDs[vg.Provider] = pid
		}

		g := &model.Game{
			Identity:   agg.Identity + ":" + vg.Symbol,
			ProviderID: pid,
			Name:       vg.Name,
			GameType:   vg.GameType,
		}
		created, err := s.catalog.UpsertGame(ctx, g)
		if err != nil {
			retErr = err
			return nil, fmt.Errorf("upsert game %s: %w", vg.Symbol, err)
		}
		if created {
			report.GamesCreated++
		} else {
			report.GamesUpdated++
		}

		v := &model.GameVariant{
			GameID:          g.ID,
			AggregatorID:    agg.ID,
			Symbol:          vg.Symbol,
			FreespinEnabled: b2i(vg.FreespinEnabled),
			FreechipEnabled: b2i(vg.FreechipEnabled),
			JackpotEnabled:  b2i(vg.JackpotEnabled),
			DemoEnabled:     b2i(vg.DemoEnabled),
			BonusBuyEnabled: b2i(vg.BonusBuyEnabled),
			BonusBetEnabled: b2i(vg.BonusBetEnabled),
			Locales:         helper.JoinCSV(vg.Locales),
			Platforms:       helper.JoinCSV(vg.Platforms),
			Lines:           vg.Lines,
		}
		if err := s.catalog.UpsertVariant(ctx, v); err != nil {
			retErr = err
			return nil, fmt.Errorf("upsert variant %s: %w", vg.Symbol, err)
		}
	}

	fmt.Printf("[Sync] 目录同步完成: aggregator=%s, providers_created=%d, games_created=%d, games_updated=%d, trace_id=%s\n",
		aggregatorIdentity, report.ProvidersCreated, report.GamesCreated, report.GamesUpdated, traceID)
	return report, nil
}

func b2i(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

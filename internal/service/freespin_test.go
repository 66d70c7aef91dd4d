package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"agg-server/internal/aggregator"
	"agg-server/internal/model"
	"agg-server/internal/state"
)

func newFreespinFixture() (*fakeCatalog, *fakeFactory, FreespinService) {
	catalog := newFakeCatalog()

	catalog.aggregators[5] = &model.AggregatorInfo{ID: 5, Identity: "evo-main", Type: "evoplay", Active: 1}
	catalog.providers[3] = &model.Provider{ID: 3, Name: "evoplay", AggregatorID: 5}
	catalog.games["evo-main:g1"] = &model.Game{ID: 10, Identity: "evo-main:g1", ProviderID: 3}
	catalog.variants[10] = &model.GameVariant{
		GameID: 10, AggregatorID: 5, Symbol: "g1", FreespinEnabled: 1,
		Locales: "en", Platforms: "desktop",
	}

	factory := &fakeFactory{
		launch: &fakeLaunchAdapter{},
		freespin: &fakeFreespinAdapter{
			preset: &aggregator.FreespinPreset{ID: "ps1", BetPerSpin: 50, SpinCount: 10, Currency: "EUR"},
		},
		sync: &fakeGameSyncAdapter{},
	}
	registry := aggregator.NewRegistry()
	registry.Register(aggregator.TypeEvoplay, factory)

	svc := NewFreespinService(catalog, registry, &fakeEvents{})
	return catalog, factory, svc
}

func TestFreespinCreate(t *testing.T) {
	catalog, factory, svc := newFreespinFixture()

	campaign, err := svc.Create(context.Background(), CreateFreespinCmd{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		PresetID: "ps1", SpinCount: 10, BetPerSpin: 50, ExpireAt: 1700000000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if campaign.ExtID != "ext-fs-1" || campaign.Status != state.StateCreated {
		t.Fatalf("unexpected campaign: %+v", campaign)
	}
	if campaign.ExpireAt != 1700000000000 {
		t.Fatalf("expire_at not persisted: %+v", campaign)
	}
	if len(factory.freespin.created) != 1 || factory.freespin.created[0].Symbol != "g1" {
		t.Fatalf("vendor create mismatch: %+v", factory.freespin.created)
	}
	if catalog.freespins["ext-fs-1"] == nil {
		t.Fatal("campaign not registered locally")
	}
}

func TestFreespinCreateDuplicateReturnsExisting(t *testing.T) {
	_, _, svc := newFreespinFixture()

	cmd := CreateFreespinCmd{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		PresetID: "ps1", SpinCount: 10, BetPerSpin: 50,
	}
	first, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	// 厂商侧重复创建返回同一 ext_id，本地唯一键冲突后回读
	second, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("duplicate create must return existing campaign: %d != %d", first.ID, second.ID)
	}
}

func TestFreespinCreateNotEnabled(t *testing.T) {
	catalog, _, svc := newFreespinFixture()
	catalog.variants[10].FreespinEnabled = 0

	_, err := svc.Create(context.Background(), CreateFreespinCmd{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		SpinCount: 10, BetPerSpin: 50,
	})
	if !errors.Is(err, ErrFreespinNotEnabled) {
		t.Fatalf("expected ErrFreespinNotEnabled, got %v", err)
	}
}

func TestFreespinCreateInvalidInput(t *testing.T) {
	_, _, svc := newFreespinFixture()

	_, err := svc.Create(context.Background(), CreateFreespinCmd{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		SpinCount: 0, BetPerSpin: 50,
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero spins, got %v", err)
	}
}

func TestFreespinCancel(t *testing.T) {
	catalog, factory, svc := newFreespinFixture()

	campaign, err := svc.Create(context.Background(), CreateFreespinCmd{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		SpinCount: 10, BetPerSpin: 50,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Cancel(context.Background(), campaign.ExtID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if catalog.freespins[campaign.ExtID].Status != state.StateCancelled {
		t.Fatalf("status not advanced: %+v", catalog.freespins[campaign.ExtID])
	}
	if len(factory.freespin.cancelled) != 1 {
		t.Fatalf("vendor cancel expected once, got %v", factory.freespin.cancelled)
	}

	// 重复取消为幂等：不再触厂商
	if err := svc.Cancel(context.Background(), campaign.ExtID, ""); err != nil {
		t.Fatalf("repeat cancel must be a no-op: %v", err)
	}
	if len(factory.freespin.cancelled) != 1 {
		t.Fatalf("repeat cancel must not hit vendor again: %v", factory.freespin.cancelled)
	}
}

func TestFreespinCancelUnknown(t *testing.T) {
	_, _, svc := newFreespinFixture()

	err := svc.Cancel(context.Background(), "no-such-campaign", "")
	if !errors.Is(err, ErrFreespinNotFound) {
		t.Fatalf("expected ErrFreespinNotFound, got %v", err)
	}
}

func TestFreespinExpireDueSweep(t *testing.T) {
	catalog := newFakeCatalog()
	events := &fakeEvents{}
	svc := NewFreespinService(catalog, aggregator.NewRegistry(), events)
	now := time.Now().UnixMilli()

	catalog.freespins["fs-due"] = &model.FreespinCampaign{
		ID: 1, ExtID: "fs-due", GameID: 10, PlayerID: "p1",
		Status: state.StateActive, ExpireAt: now - 1000,
	}
	catalog.freespins["fs-later"] = &model.FreespinCampaign{
		ID: 2, ExtID: "fs-later", GameID: 10, PlayerID: "p1",
		Status: state.StateActive, ExpireAt: now + 60_000,
	}
	catalog.freespins["fs-open-ended"] = &model.FreespinCampaign{
		ID: 3, ExtID: "fs-open-ended", GameID: 10, PlayerID: "p1",
		Status: state.StateCreated, ExpireAt: 0,
	}

	n, err := svc.ExpireDue(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("exactly one campaign due, got %d", n)
	}
	if catalog.freespins["fs-due"].Status != state.StateExpired {
		t.Fatalf("due campaign not expired: %+v", catalog.freespins["fs-due"])
	}
	if catalog.freespins["fs-later"].Status != state.StateActive ||
		catalog.freespins["fs-open-ended"].Status != state.StateCreated {
		t.Fatal("campaigns not yet due must keep their status")
	}
	if len(events.topics) != 1 || events.topics[0] != "freespin_removed" {
		t.Fatalf("expected one freespin_removed event, got %v", events.topics)
	}

	// 重复清扫为幂等：无事件、无翻转
	n, err = svc.ExpireDue(context.Background())
	if err != nil {
		t.Fatalf("repeat sweep: %v", err)
	}
	if n != 0 || len(events.topics) != 1 {
		t.Fatalf("repeat sweep must be a no-op: n=%d events=%v", n, events.topics)
	}
}

func TestFreespinGetPreset(t *testing.T) {
	_, _, svc := newFreespinFixture()

	preset, err := svc.GetPreset(context.Background(), "evo-main:g1", "ps1")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	if preset.BetPerSpin != 50 || preset.SpinCount != 10 {
		t.Fatalf("unexpected preset: %+v", preset)
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"agg-server/internal/aggregator"
	"agg-server/internal/model"
)

// 假厂商工厂：启动链接直接回显，免费旋转/目录同步按需配置

type fakeLaunchAdapter struct {
	lastInput aggregator.LaunchInput
	extToken  string
	relURL    string // 非空时模拟返回相对路径的厂商
}

func (a *fakeLaunchAdapter) LaunchURL(_ context.Context, in aggregator.LaunchInput) (*aggregator.LaunchResult, error) {
	a.lastInput = in
	u := "https://vendor.example/launch/" + in.Symbol
	if a.relURL != "" {
		u = a.relURL
	}
	return &aggregator.LaunchResult{URL: u, ExtToken: a.extToken}, nil
}

type fakeFreespinAdapter struct {
	preset    *aggregator.FreespinPreset
	created   []aggregator.CreateFreespinInput
	cancelled []string
	createErr error
}

func (a *fakeFreespinAdapter) GetPreset(_ context.Context, _, _ string) (*aggregator.FreespinPreset, error) {
	return a.preset, nil
}

func (a *fakeFreespinAdapter) Create(_ context.Context, in aggregator.CreateFreespinInput) (string, error) {
	if a.createErr != nil {
		return "", a.createErr
	}
	a.created = append(a.created, in)
	return "ext-fs-1", nil
}

func (a *fakeFreespinAdapter) Cancel(_ context.Context, extID string) error {
	a.cancelled = append(a.cancelled, extID)
	return nil
}

type fakeGameSyncAdapter struct{ games []aggregator.VendorGame }

func (a *fakeGameSyncAdapter) ListGames(_ context.Context) ([]aggregator.VendorGame, error) {
	return a.games, nil
}

type fakeFactory struct {
	launch   *fakeLaunchAdapter
	freespin *fakeFreespinAdapter
	sync     *fakeGameSyncAdapter
}

func (f *fakeFactory) LaunchAdapter(_ *model.AggregatorInfo) (aggregator.LaunchAdapter, error) {
	return f.launch, nil
}

func (f *fakeFactory) FreespinAdapter(_ *model.AggregatorInfo) (aggregator.FreespinAdapter, error) {
	return f.freespin, nil
}

func (f *fakeFactory) GameSyncAdapter(_ *model.AggregatorInfo) (aggregator.GameSyncAdapter, error) {
	return f.sync, nil
}

func newSessionFixture() (*fakeLedger, *fakeCatalog, *fakeFactory, SessionService) {
	ledger := newFakeLedger()
	catalog := newFakeCatalog()

	catalog.aggregators[5] = &model.AggregatorInfo{ID: 5, Identity: "evo-main", Type: "evoplay", Active: 1}
	catalog.providers[3] = &model.Provider{ID: 3, Name: "evoplay", AggregatorID: 5}
	catalog.games["evo-main:g1"] = &model.Game{ID: 10, Identity: "evo-main:g1", ProviderID: 3, Name: "Game One"}
	catalog.variants[10] = &model.GameVariant{
		GameID: 10, AggregatorID: 5, Symbol: "g1", FreespinEnabled: 1, BonusBetEnabled: 1,
		Locales: "en,de", Platforms: "desktop,mobile",
	}

	factory := &fakeFactory{
		launch:   &fakeLaunchAdapter{extToken: "vnd-token"},
		freespin: &fakeFreespinAdapter{},
		sync:     &fakeGameSyncAdapter{},
	}
	registry := aggregator.NewRegistry()
	registry.Register(aggregator.TypeEvoplay, factory)

	svc := NewSessionService(ledger, catalog, registry, &fakeEvents{})
	return ledger, catalog, factory, svc
}

func TestOpenSession(t *testing.T) {
	ledger, _, factory, svc := newSessionFixture()

	out, err := svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		Locale: "en", Platform: "desktop",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out.Token == "" || out.LaunchURL == "" {
		t.Fatalf("empty output: %+v", out)
	}
	sess, err := svc.FindByToken(context.Background(), out.Token)
	if err != nil {
		t.Fatalf("find by token: %v", err)
	}
	if sess.ExtToken != "vnd-token" {
		t.Fatalf("vendor token not persisted: %+v", sess)
	}
	if factory.launch.lastInput.Token != out.Token {
		t.Fatalf("platform token must be passed to vendor launch: %+v", factory.launch.lastInput)
	}
	if len(ledger.sessions) != 1 {
		t.Fatalf("one session expected, got %d", len(ledger.sessions))
	}
}

func TestOpenSessionRelativeLaunchURL(t *testing.T) {
	_, catalog, factory, svc := newSessionFixture()
	catalog.aggregators[5].Config = `{"gateway":"https://gw.vendor.example/api"}`
	factory.launch.relURL = "launch/g1?sid=abc"

	out, err := svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		Locale: "en", Platform: "desktop",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// 厂商返回相对路径时按聚合商网关补全
	if out.LaunchURL != "https://gw.vendor.example/api/launch/g1?sid=abc" {
		t.Fatalf("relative launch path must be joined with gateway: %s", out.LaunchURL)
	}

	// 绝对链接原样透传
	factory.launch.relURL = "https://other.vendor.example/play"
	out, err = svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		Locale: "en", Platform: "desktop",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out.LaunchURL != "https://other.vendor.example/play" {
		t.Fatalf("absolute launch URL must pass through: %s", out.LaunchURL)
	}
}

func TestOpenSessionLocaleValidation(t *testing.T) {
	_, _, _, svc := newSessionFixture()

	_, err := svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		Locale: "fr", Platform: "desktop",
	})
	if !errors.Is(err, ErrLocaleUnsupported) {
		t.Fatalf("expected ErrLocaleUnsupported, got %v", err)
	}

	_, err = svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		Locale: "en", Platform: "console",
	})
	if !errors.Is(err, ErrDeviceUnsupported) {
		t.Fatalf("expected ErrDeviceUnsupported, got %v", err)
	}
}

func TestOpenSessionLocaleCaseInsensitive(t *testing.T) {
	_, _, _, svc := newSessionFixture()

	_, err := svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		Locale: "EN", Platform: "Desktop",
	})
	if err != nil {
		t.Fatalf("locale/platform match must be case-insensitive: %v", err)
	}
}

func TestOpenSessionUnknownGame(t *testing.T) {
	_, _, _, svc := newSessionFixture()

	_, err := svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "nope", PlayerID: "p1", Currency: "EUR",
		Locale: "en", Platform: "desktop",
	})
	if !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestOpenSessionInactiveAggregator(t *testing.T) {
	_, catalog, _, svc := newSessionFixture()
	catalog.aggregators[5].Active = 0

	_, err := svc.Open(context.Background(), OpenSessionInput{
		GameIdentity: "evo-main:g1", PlayerID: "p1", Currency: "EUR",
		Locale: "en", Platform: "desktop",
	})
	if !errors.Is(err, ErrAggregatorNotFound) {
		t.Fatalf("expected ErrAggregatorNotFound, got %v", err)
	}
}

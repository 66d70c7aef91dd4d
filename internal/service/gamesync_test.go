package service

import (
	"context"
	"errors"
	"testing"

	"agg-server/internal/aggregator"
	"agg-server/internal/model"
)

func newSyncFixture(games []aggregator.VendorGame) (*fakeCatalog, GameSyncService) {
	catalog := newFakeCatalog()
	catalog.aggregators[5] = &model.AggregatorInfo{ID: 5, Identity: "evo-main", Type: "evoplay", Active: 1}

	factory := &fakeFactory{
		launch:   &fakeLaunchAdapter{},
		freespin: &fakeFreespinAdapter{},
		sync:     &fakeGameSyncAdapter{games: games},
	}
	registry := aggregator.NewRegistry()
	registry.Register(aggregator.TypeEvoplay, factory)

	return catalog, NewGameSyncService(catalog, registry)
}

func TestSyncCreatesCatalogRows(t *testing.T) {
	catalog, svc := newSyncFixture([]aggregator.VendorGame{
		{Symbol: "g1", Name: "Game One", Provider: "evoplay", GameType: "slots",
			FreespinEnabled: true, BonusBetEnabled: true,
			Locales: []string{"en", "de"}, Platforms: []string{"desktop", "mobile"}, Lines: 20},
		{Symbol: "g2", Name: "Game Two", Provider: "evoplay", GameType: "slots",
			Locales: []string{"en"}, Platforms: []string{"desktop"}},
	})

	report, err := svc.Sync(context.Background(), "evo-main", "")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.ProvidersCreated != 1 || report.GamesCreated != 2 || report.GamesUpdated != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	g := catalog.games["evo-main:g1"]
	if g == nil {
		t.Fatal("game identity must be aggregator-prefixed")
	}
	v := catalog.variants[g.ID]
	if v == nil || v.Symbol != "g1" || v.FreespinEnabled != 1 || v.Locales != "en,de" {
		t.Fatalf("variant mismatch: %+v", v)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	games := []aggregator.VendorGame{
		{Symbol: "g1", Name: "Game One", Provider: "evoplay", GameType: "slots",
			Locales: []string{"en"}, Platforms: []string{"desktop"}},
	}
	_, svc := newSyncFixture(games)

	if _, err := svc.Sync(context.Background(), "evo-main", ""); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	report, err := svc.Sync(context.Background(), "evo-main", "")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.GamesCreated != 0 || report.GamesUpdated != 1 {
		t.Fatalf("second sync must only update: %+v", report)
	}
}

func TestSyncUnknownAggregator(t *testing.T) {
	_, svc := newSyncFixture(nil)

	_, err := svc.Sync(context.Background(), "nope", "")
	if !errors.Is(err, ErrAggregatorNotFound) {
		t.Fatalf("expected ErrAggregatorNotFound, got %v", err)
	}
}

func TestSyncUnregisteredType(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.aggregators[7] = &model.AggregatorInfo{ID: 7, Identity: "amg-main", Type: "amigo", Active: 1}
	svc := NewGameSyncService(catalog, aggregator.NewRegistry())

	_, err := svc.Sync(context.Background(), "amg-main", "")
	if !errors.Is(err, aggregator.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

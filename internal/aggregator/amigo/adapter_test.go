package amigo

import (
	"context"
	"errors"
	"testing"

	"agg-server/internal/aggregator"
)

func TestListGamesStaticCatalog(t *testing.T) {
	ad, err := NewFactory().GameSyncAdapter(nil)
	if err != nil {
		t.Fatalf("game sync adapter: %v", err)
	}
	games, err := ad.ListGames(context.Background())
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(games) != len(staticGames) {
		t.Fatalf("got %d games, want %d", len(games), len(staticGames))
	}

	// 返回的是副本，调用方修改不得污染静态清单
	games[0].Name = "mutated"
	if staticGames[0].Name == "mutated" {
		t.Fatal("ListGames must return a copy")
	}
}

func TestUndeliveredCapabilities(t *testing.T) {
	f := NewFactory()

	if _, err := f.LaunchAdapter(nil); !errors.Is(err, aggregator.ErrNotImplemented) {
		t.Fatalf("launch: expected ErrNotImplemented, got %v", err)
	}
	if _, err := f.FreespinAdapter(nil); !errors.Is(err, aggregator.ErrNotImplemented) {
		t.Fatalf("freespin: expected ErrNotImplemented, got %v", err)
	}
}

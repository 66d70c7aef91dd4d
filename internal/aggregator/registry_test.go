package aggregator

import (
	"errors"
	"testing"

	"agg-server/internal/model"
)

type stubFactory struct{ tag string }

func (f *stubFactory) LaunchAdapter(*model.AggregatorInfo) (LaunchAdapter, error) {
	return nil, ErrNotImplemented
}
func (f *stubFactory) FreespinAdapter(*model.AggregatorInfo) (FreespinAdapter, error) {
	return nil, ErrNotImplemented
}
func (f *stubFactory) GameSyncAdapter(*model.AggregatorInfo) (GameSyncAdapter, error) {
	return nil, ErrNotImplemented
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	f := &stubFactory{tag: "evo"}
	r.Register(TypeEvoplay, f)

	got, err := r.Resolve(TypeEvoplay)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != Factory(f) {
		t.Fatal("resolve must return the registered factory")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve(Type("bogus"))
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestRegistryReRegisterOverrides(t *testing.T) {
	r := NewRegistry()
	first := &stubFactory{tag: "a"}
	second := &stubFactory{tag: "b"}
	r.Register(TypeAmigo, first)
	r.Register(TypeAmigo, second)

	got, err := r.Resolve(TypeAmigo)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != Factory(second) {
		t.Fatal("later registration must win")
	}
}

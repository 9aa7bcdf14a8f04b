package provider

import (
	"errors"
	"testing"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	p := NewVIXProvider(trace.NewNoopTracerProvider().Tracer("test"))
	if err := r.Register(p.Name(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(p.Name(), p); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}

func TestRegistryResolveUnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve([]string{"nope"})
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestRegistryResolvePreservesRequestedOrder(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	r := NewRegistry()
	for _, f := range []Fetcher{NewVIXProvider(tracer), NewCNNProvider(tracer), NewRSIProvider(tracer)} {
		if err := r.Register(f.Name(), f); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	fetchers, err := r.Resolve([]string{"rsi", "vix"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetchers) != 2 || fetchers[0].Name() != "rsi" || fetchers[1].Name() != "vix" {
		t.Fatalf("unexpected resolution order: %+v", fetchers)
	}
}

func TestBuildRegistryCoversDefaultProviderSet(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	r, err := BuildRegistry(tracer, BuildOptions{
		HTTPConfigPath:  "api_config.yaml",
		ManualInputPath: "manual_input.yaml",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"http", "ycharts", "cnn", "vix", "multpl", "nasdaqpe", "fred", "rsi", "ndtw", "manual"} {
		if _, err := r.Resolve([]string{name}); err != nil {
			t.Fatalf("expected %q registered: %v", name, err)
		}
	}
}

func TestBuildRegistryCoversAllIndicators(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	r, err := BuildRegistry(tracer, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetchers, err := r.Resolve(r.Names())
	if err != nil {
		t.Fatalf("resolve all: %v", err)
	}
	covered := map[domain.IndicatorID]bool{}
	for _, f := range fetchers {
		for _, id := range f.Indicators() {
			covered[id] = true
		}
	}
	for _, ind := range domain.Indicators() {
		if !covered[ind.ID] {
			t.Fatalf("no provider covers indicator %s", ind.ID)
		}
	}
}

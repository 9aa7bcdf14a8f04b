package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/provider"
)

type fakeRecorder struct {
	recorded []domain.IngestionReport
	last     *domain.IngestionReport
}

func (r *fakeRecorder) RecordRun(ctx context.Context, report domain.IngestionReport) error {
	r.recorded = append(r.recorded, report)
	return nil
}

func (r *fakeRecorder) LastRun(ctx context.Context) (*domain.IngestionReport, error) {
	return r.last, nil
}

func registryWith(t *testing.T, fetchers ...provider.Fetcher) *provider.Registry {
	t.Helper()
	reg := provider.NewRegistry()
	for _, f := range fetchers {
		if err := reg.Register(f.Name(), f); err != nil {
			t.Fatalf("register %s: %v", f.Name(), err)
		}
	}
	return reg
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	reg := registryWith(t, &fakeFetcher{name: "p1"})
	pipe := NewPipeline(&memStore{}, noopTracer())

	_, err := NewService(noopTracer(), pipe, reg, []string{"p1", "nope"}, nil, nil, time.Second)
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected unknown-provider error, got %v", err)
	}
}

func TestNewServiceRequiresProviders(t *testing.T) {
	reg := registryWith(t)
	pipe := NewPipeline(&memStore{}, noopTracer())
	if _, err := NewService(noopTracer(), pipe, reg, nil, nil, nil, time.Second); err == nil {
		t.Fatal("expected error for empty provider list")
	}
}

func TestServiceRunRecordsAndInvalidates(t *testing.T) {
	f := &fakeFetcher{name: "p1", fetchFn: func(ctx context.Context) ([]domain.Observation, error) {
		return []domain.Observation{vixObs(18, 18)}, nil
	}}
	reg := registryWith(t, f)
	recorder := &fakeRecorder{}
	invalidated := 0

	svc, err := NewService(noopTracer(), NewPipeline(&memStore{}, noopTracer()), reg,
		[]string{"p1"}, recorder, func(ctx context.Context) { invalidated++ }, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := svc.Run(context.Background())
	if report.ObservationsWritten() != 1 {
		t.Fatalf("expected one observation written, got %d", report.ObservationsWritten())
	}
	if len(recorder.recorded) != 1 {
		t.Fatalf("expected run recorded once, got %d", len(recorder.recorded))
	}
	if invalidated != 1 {
		t.Fatalf("expected one cache invalidation, got %d", invalidated)
	}
}

func TestServiceRunSkipsInvalidationWhenNothingWritten(t *testing.T) {
	f := &fakeFetcher{name: "p1", fetchFn: func(ctx context.Context) ([]domain.Observation, error) {
		return nil, domain.NewProviderError("p1", domain.ProviderUnavailable, errors.New("down"))
	}}
	reg := registryWith(t, f)
	invalidated := 0

	svc, err := NewService(noopTracer(), NewPipeline(&memStore{}, noopTracer()), reg,
		[]string{"p1"}, &fakeRecorder{}, func(ctx context.Context) { invalidated++ }, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.Run(context.Background())
	if invalidated != 0 {
		t.Fatal("failed run must not invalidate the signal cache")
	}
}

func TestServiceProvidersPreservesRunOrder(t *testing.T) {
	reg := registryWith(t,
		&fakeFetcher{name: "a"},
		&fakeFetcher{name: "b"},
		&fakeFetcher{name: "c"},
	)
	svc, err := NewService(noopTracer(), NewPipeline(&memStore{}, noopTracer()), reg,
		[]string{"c", "a"}, nil, nil, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := svc.Providers()
	if len(names) != 2 || names[0] != "c" || names[1] != "a" {
		t.Fatalf("expected configured order preserved, got %v", names)
	}
}

func TestServiceLastReport(t *testing.T) {
	want := &domain.IngestionReport{StartedAt: time.Now().UTC()}
	reg := registryWith(t, &fakeFetcher{name: "p1"})
	svc, err := NewService(noopTracer(), NewPipeline(&memStore{}, noopTracer()), reg,
		[]string{"p1"}, &fakeRecorder{last: want}, nil, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.LastReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected persisted report back, got %+v", got)
	}
}

package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

type fakeStore struct {
	latest     map[domain.IndicatorID]*domain.Observation
	recent     map[domain.IndicatorID][]domain.Observation
	listErr    error
	listCalls  int
	recentCall int
}

func (f *fakeStore) ListLatest(ctx context.Context) ([]domain.Observation, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Observation, 0, len(f.latest))
	for _, ind := range domain.Indicators() {
		if obs := f.latest[ind.ID]; obs != nil {
			out = append(out, *obs)
		}
	}
	return out, nil
}

func (f *fakeStore) Latest(ctx context.Context, id domain.IndicatorID) (*domain.Observation, error) {
	return f.latest[id], nil
}

func (f *fakeStore) Recent(ctx context.Context, id domain.IndicatorID, limit int) ([]domain.Observation, error) {
	f.recentCall++
	return f.recent[id], nil
}

type fakeRedis struct {
	data map[string][]byte
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string][]byte{}} }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = v
	case string:
		f.data[key] = []byte(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	n := int64(0)
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func testTracer() trace.Tracer { return trace.NewNoopTracerProvider().Tracer("test") }

func asOfDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestListSignalsEvaluatesAndCaches(t *testing.T) {
	store := &fakeStore{latest: map[domain.IndicatorID]*domain.Observation{
		domain.IndicatorVIX: {
			IndicatorID: domain.IndicatorVIX,
			AsOf:        asOfDay(2026, 3, 18),
			Value:       45,
			Unit:        "index",
		},
	}}
	rds := newFakeRedis()
	svc := NewService(testTracer(), store, rds)

	now := asOfDay(2026, 3, 19)
	signals, err := svc.ListSignals(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected one signal, got %d", len(signals))
	}
	if signals[0].Class != domain.SignalBottom {
		t.Fatalf("expected bottom on VIX 45, got %s", signals[0].Class)
	}
	if signals[0].Stale {
		t.Fatal("one-day-old daily reading must not be stale")
	}
	if _, ok := rds.data[signalsCacheKey]; !ok {
		t.Fatal("expected signals cached")
	}

	// Second read must come from the cache, not the store.
	if _, err := svc.ListSignals(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.listCalls != 1 {
		t.Fatalf("expected one store read, got %d", store.listCalls)
	}
}

func TestListSignalsMarksStaleReading(t *testing.T) {
	store := &fakeStore{latest: map[domain.IndicatorID]*domain.Observation{
		domain.IndicatorVIX: {
			IndicatorID: domain.IndicatorVIX,
			AsOf:        asOfDay(2026, 3, 1),
			Value:       19,
			Unit:        "index",
		},
	}}
	svc := NewService(testTracer(), store, nil)

	signals, err := svc.ListSignals(context.Background(), asOfDay(2026, 3, 19))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !signals[0].Stale {
		t.Fatal("expected stale flag on 18-day-old daily reading")
	}
	if signals[0].Class != domain.SignalNeutral {
		t.Fatalf("stale value still classifies: got %s", signals[0].Class)
	}
}

func TestListSignalsWeeklyIndicatorWiderWindow(t *testing.T) {
	store := &fakeStore{latest: map[domain.IndicatorID]*domain.Observation{
		domain.IndicatorBullBearSpread: {
			IndicatorID: domain.IndicatorBullBearSpread,
			AsOf:        asOfDay(2026, 3, 11),
			Value:       4.8,
			Unit:        "%",
		},
	}}
	svc := NewService(testTracer(), store, nil)

	signals, err := svc.ListSignals(context.Background(), asOfDay(2026, 3, 19))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signals[0].Stale {
		t.Fatal("8-day-old weekly reading is within its freshness window")
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	store := &fakeStore{latest: map[domain.IndicatorID]*domain.Observation{}}
	rds := newFakeRedis()
	rds.data[signalsCacheKey] = []byte("[]")
	svc := NewService(testTracer(), store, rds)

	svc.Invalidate(context.Background())
	if _, ok := rds.data[signalsCacheKey]; ok {
		t.Fatal("expected cache entry removed")
	}
}

func TestListSignalsUsesCachedPayload(t *testing.T) {
	cached := []domain.Signal{{IndicatorID: domain.IndicatorVIX, Class: domain.SignalTop, Value: 11}}
	raw, _ := json.Marshal(cached)
	rds := newFakeRedis()
	rds.data[signalsCacheKey] = raw

	svc := NewService(testTracer(), &fakeStore{}, rds)
	signals, err := svc.ListSignals(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 1 || signals[0].Class != domain.SignalTop {
		t.Fatalf("expected cached payload, got %+v", signals)
	}
}

func TestEvaluateIndicatorNoData(t *testing.T) {
	svc := NewService(testTracer(), &fakeStore{latest: map[domain.IndicatorID]*domain.Observation{}}, nil)
	_, err := svc.EvaluateIndicator(context.Background(), domain.IndicatorVIX, time.Now().UTC())
	if err == nil {
		t.Fatal("expected error for empty store")
	}
}

func TestEvaluateIndicatorReadsPercentileHistory(t *testing.T) {
	history := make([]domain.Observation, 0, 30)
	for i := 0; i < 30; i++ {
		history = append(history, domain.Observation{
			IndicatorID: domain.IndicatorSP500PE,
			AsOf:        asOfDay(2026, 1, 1).AddDate(0, 0, i),
			Value:       20 + float64(i)*0.1,
			Unit:        "x",
		})
	}
	latest := history[len(history)-1]
	latest.Value = 29

	store := &fakeStore{
		latest: map[domain.IndicatorID]*domain.Observation{domain.IndicatorSP500PE: &latest},
		recent: map[domain.IndicatorID][]domain.Observation{domain.IndicatorSP500PE: history},
	}
	svc := NewService(testTracer(), store, nil)

	sig, err := svc.EvaluateIndicator(context.Background(), domain.IndicatorSP500PE, asOfDay(2026, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.recentCall == 0 {
		t.Fatal("expected trailing history read for percentile rule")
	}
	if sig.Class != domain.SignalTop {
		t.Fatalf("expected percentile top, got %s (%+v)", sig.Class, sig)
	}
}

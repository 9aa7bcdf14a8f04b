package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	signalsCacheKey = "signals:all"
	signalsCacheTTL = 90 * time.Second
)

// ErrNoData marks an indicator the store holds no observations for.
var ErrNoData = errors.New("no observations for indicator")

// Store is the repository slice the signal service reads from.
type Store interface {
	ListLatest(ctx context.Context) ([]domain.Observation, error)
	Latest(ctx context.Context, id domain.IndicatorID) (*domain.Observation, error)
	Recent(ctx context.Context, id domain.IndicatorID, limit int) ([]domain.Observation, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Service evaluates signals on read. Signals are derived, never stored:
// the redis entry is a short-lived cache and is dropped after every
// ingestion commit.
type Service struct {
	tracer trace.Tracer
	repo   Store
	redis  RedisClient
}

func NewService(tracer trace.Tracer, repo Store, redisClient RedisClient) *Service {
	return &Service{tracer: tracer, repo: repo, redis: redisClient}
}

// ListSignals evaluates every catalog indicator that has at least one
// observation, in catalog order. now drives staleness only.
func (s *Service) ListSignals(ctx context.Context, now time.Time) ([]domain.Signal, error) {
	_, span := s.tracer.Start(ctx, "signal-service.list-signals")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getCache(ctx)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	latest, err := s.repo.ListLatest(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.IndicatorID]domain.Observation, len(latest))
	for _, obs := range latest {
		byID[obs.IndicatorID] = obs
	}

	signals := make([]domain.Signal, 0, len(byID))
	for _, indicator := range domain.Indicators() {
		obs, ok := byID[indicator.ID]
		if !ok {
			continue
		}
		sig, err := s.evaluate(ctx, indicator, obs, now)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}

	if s.redis != nil {
		if err := s.setCache(ctx, signals); err != nil {
			log.Printf("redis cache write error: %v", err)
		}
	}
	return signals, nil
}

// EvaluateIndicator evaluates a single indicator, bypassing the cache.
func (s *Service) EvaluateIndicator(ctx context.Context, id domain.IndicatorID, now time.Time) (domain.Signal, error) {
	_, span := s.tracer.Start(ctx, "signal-service.evaluate-indicator")
	defer span.End()

	indicator, ok := domain.IndicatorByID(id)
	if !ok {
		return domain.Signal{}, fmt.Errorf("unknown indicator %q", id)
	}
	obs, err := s.repo.Latest(ctx, id)
	if err != nil {
		return domain.Signal{}, err
	}
	if obs == nil {
		return domain.Signal{}, fmt.Errorf("%w: %s", ErrNoData, id)
	}
	return s.evaluate(ctx, indicator, *obs, now)
}

// Invalidate drops the cached signal set so the next read re-evaluates.
func (s *Service) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, signalsCacheKey).Err(); err != nil {
		log.Printf("redis cache invalidation error: %v", err)
	}
}

func (s *Service) evaluate(ctx context.Context, indicator domain.Indicator, obs domain.Observation, now time.Time) (domain.Signal, error) {
	var history []float64
	if indicator.Rule.Kind == domain.RuleFixedOrPercentile {
		recent, err := s.repo.Recent(ctx, indicator.ID, historyWindow(indicator.Rule))
		if err != nil {
			return domain.Signal{}, err
		}
		history = HistoryValues(indicator, recent)
	}

	sig := Evaluate(indicator, obs, history)
	if indicator.StaleAfter > 0 && now.Sub(obs.AsOf) > indicator.StaleAfter {
		sig.Stale = true
	}
	return sig, nil
}

// historyWindow caps the trailing window read for percentile math at a
// multiple of the rule minimum so the query stays bounded.
func historyWindow(rule domain.ThresholdRule) int {
	window := rule.MinHistory * 25
	if window < 100 {
		window = 100
	}
	return window
}

func (s *Service) getCache(ctx context.Context) ([]domain.Signal, error) {
	data, err := s.redis.Get(ctx, signalsCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var signals []domain.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

func (s *Service) setCache(ctx context.Context, signals []domain.Signal) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, signalsCacheKey, data, signalsCacheTTL).Err()
}

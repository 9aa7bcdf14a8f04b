package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	cnnGraphDataURL = "https://production.dataviz.cnn.io/index/fearandgreed/graphdata"
	cnnPageURL      = "https://edition.cnn.com/markets/fear-and-greed"
	cnnOrigin       = "https://edition.cnn.com"
)

// CNNProvider reads the Fear & Greed graphdata JSON the CNN page calls
// internally. One response carries both the headline index and the
// put/call component, so a single fetch emits two observations.
type CNNProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewCNNProvider(tracer trace.Tracer) *CNNProvider {
	return &CNNProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: cnnGraphDataURL,
		tracer:  tracer,
	}
}

func (p *CNNProvider) Name() string { return "cnn" }

func (p *CNNProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorFearGreed, domain.IndicatorPutCall}
}

func (p *CNNProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "cnn.fetch")
	defer span.End()

	body, err := p.fetchGraphData(ctx)
	if err != nil {
		return nil, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("decode graphdata: %w", err))
	}

	out := make([]domain.Observation, 0, 2)
	if obs, err := p.parseFearGreed(payload); err == nil {
		out = append(out, obs)
	} else {
		return nil, err
	}
	if obs, ok := p.parsePutCall(payload); ok {
		out = append(out, obs)
	}
	return out, nil
}

func (p *CNNProvider) fetchGraphData(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}
	// The endpoint returns 418 without browser-like headers.
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json,text/plain,*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", cnnPageURL)
	req.Header.Set("Origin", cnnOrigin)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTeapot {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable,
			fmt.Errorf("graphdata returned 418 (bot detection)"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(p.Name(), resp)
	}
	return io.ReadAll(resp.Body)
}

func (p *CNNProvider) parseFearGreed(payload map[string]json.RawMessage) (domain.Observation, error) {
	raw, ok := payload["fear_and_greed"]
	if !ok {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("graphdata has no fear_and_greed block"))
	}

	var fg struct {
		Score     float64 `json:"score"`
		Rating    string  `json:"rating"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &fg); err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("decode fear_and_greed: %w", err))
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if fg.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, fg.Timestamp); err == nil {
			asOf = ts.UTC().Truncate(24 * time.Hour)
		}
	}

	return domain.Observation{
		IndicatorID: domain.IndicatorFearGreed,
		AsOf:        asOf,
		Value:       fg.Score,
		Unit:        "0-100",
		Source:      "CNN:dataviz",
		Meta:        map[string]string{"url": p.baseURL, "rating": fg.Rating, "timestamp": fg.Timestamp},
	}, nil
}

// parsePutCall locates the put/call component and takes the last series
// point, which carries the ratio rather than the 0-100 component score.
// The component is optional: the headline index still commits without it.
func (p *CNNProvider) parsePutCall(payload map[string]json.RawMessage) (domain.Observation, bool) {
	raw := p.findComponent(payload, "put", "call")
	if raw == nil {
		return domain.Observation{}, false
	}

	var comp struct {
		Rating    string `json:"rating"`
		Timestamp string `json:"timestamp"`
		Data      []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &comp); err != nil || len(comp.Data) == 0 {
		return domain.Observation{}, false
	}
	last := comp.Data[len(comp.Data)-1]

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if last.X > 0 {
		asOf = time.UnixMilli(int64(last.X)).UTC().Truncate(24 * time.Hour)
	}

	return domain.Observation{
		IndicatorID: domain.IndicatorPutCall,
		AsOf:        asOf,
		Value:       last.Y,
		Unit:        "ratio",
		Source:      "CNN:dataviz",
		Meta:        map[string]string{"url": p.baseURL, "rating": comp.Rating, "timestamp": comp.Timestamp},
	}, true
}

func (p *CNNProvider) findComponent(payload map[string]json.RawMessage, keywords ...string) json.RawMessage {
	containsAll := func(key string) bool {
		lk := strings.ToLower(key)
		for _, kw := range keywords {
			if !strings.Contains(lk, kw) {
				return false
			}
		}
		return true
	}
	containsAny := func(key string) bool {
		lk := strings.ToLower(key)
		for _, kw := range keywords {
			if strings.Contains(lk, kw) {
				return true
			}
		}
		return false
	}
	for key, raw := range payload {
		if containsAll(key) {
			return raw
		}
	}
	for key, raw := range payload {
		if containsAny(key) {
			return raw
		}
	}
	return nil
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const yahooVIXChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%5EVIX"

// VIXProvider prefers the Yahoo Finance chart quote (closer to real time)
// and falls back to the CNN graphdata volatility component, which often
// lags to the prior close.
type VIXProvider struct {
	client      *http.Client
	yahooURL    string
	fallbackURL string
	tracer      trace.Tracer
}

func NewVIXProvider(tracer trace.Tracer) *VIXProvider {
	return &VIXProvider{
		client:      &http.Client{Timeout: 15 * time.Second},
		yahooURL:    yahooVIXChartURL,
		fallbackURL: cnnGraphDataURL,
		tracer:      tracer,
	}
}

func (p *VIXProvider) Name() string { return "vix" }

func (p *VIXProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorVIX}
}

func (p *VIXProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "vix.fetch")
	defer span.End()

	if obs, err := p.fetchYahoo(ctx); err == nil {
		return []domain.Observation{obs}, nil
	} else if ctx.Err() != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, ctx.Err())
	}

	obs, err := p.fetchCNNFallback(ctx)
	if err != nil {
		return nil, err
	}
	return []domain.Observation{obs}, nil
}

func (p *VIXProvider) fetchYahoo(ctx context.Context) (domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.yahooURL, nil)
	if err != nil {
		return domain.Observation{}, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Observation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, fmt.Errorf("yahoo chart returned %d", resp.StatusCode)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					RegularMarketTime  int64   `json:"regularMarketTime"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Observation{}, fmt.Errorf("decode yahoo chart: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return domain.Observation{}, fmt.Errorf("yahoo chart has no result rows")
	}

	meta := payload.Chart.Result[0].Meta
	if !plausibleVIX(meta.RegularMarketPrice) {
		return domain.Observation{}, fmt.Errorf("implausible VIX quote %.2f", meta.RegularMarketPrice)
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if meta.RegularMarketTime > 0 {
		asOf = time.Unix(meta.RegularMarketTime, 0).UTC().Truncate(24 * time.Hour)
	}

	return domain.Observation{
		IndicatorID: domain.IndicatorVIX,
		AsOf:        asOf,
		Value:       meta.RegularMarketPrice,
		Unit:        "index",
		Source:      "Yahoo Finance",
		Meta:        map[string]string{"url": p.yahooURL},
	}, nil
}

func (p *VIXProvider) fetchCNNFallback(ctx context.Context) (domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.fallbackURL, nil)
	if err != nil {
		return domain.Observation{}, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", cnnPageURL)
	req.Header.Set("Origin", cnnOrigin)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTeapot {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderUnavailable,
			fmt.Errorf("graphdata returned 418 (bot detection)"))
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, classifyStatus(p.Name(), resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}

	var payload struct {
		MarketVolatilityVIX struct {
			Rating string `json:"rating"`
			Data   []struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"data"`
		} `json:"market_volatility_vix"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("decode graphdata: %w", err))
	}
	series := payload.MarketVolatilityVIX.Data
	if len(series) == 0 {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("graphdata has no market_volatility_vix series"))
	}

	last := series[len(series)-1]
	if !plausibleVIX(last.Y) {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("implausible VIX value %.2f", last.Y))
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if last.X > 0 {
		asOf = time.UnixMilli(int64(last.X)).UTC().Truncate(24 * time.Hour)
	}

	return domain.Observation{
		IndicatorID: domain.IndicatorVIX,
		AsOf:        asOf,
		Value:       last.Y,
		Unit:        "index",
		Source:      "CNN:dataviz",
		Meta:        map[string]string{"url": p.fallbackURL, "rating": payload.MarketVolatilityVIX.Rating},
	}, nil
}

// Quotes outside this band have historically been layout artifacts.
func plausibleVIX(v float64) bool { return v >= 5 && v <= 100 }

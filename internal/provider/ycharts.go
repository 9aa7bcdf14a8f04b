package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const ychartsSpreadURL = "https://ycharts.com/indicators/us_investor_sentiment_bull_bear_spread"

var (
	// "10.94% for Wk of Dec 18 2025"
	ychartsWeekRe = regexp.MustCompile(`(?i)([+-]?\d+(?:\.\d+)?)%\s*for\s*Wk\s*of\s*([A-Za-z]{3,9}\s+\d{1,2}\s+\d{4})`)
	ychartsLastRe = regexp.MustCompile(`(?i)Last Value\s*</[^>]+>\s*<[^>]+>\s*([+-]?\d+(?:\.\d+)?)%`)
)

// YChartsProvider scrapes the AAII bull-bear spread (Bull% minus Bear%),
// which fills the sentiment-spread slot of the dashboard. Weekly data.
type YChartsProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewYChartsProvider(tracer trace.Tracer) *YChartsProvider {
	return &YChartsProvider{
		client:  &http.Client{Timeout: 25 * time.Second},
		baseURL: ychartsSpreadURL,
		tracer:  tracer,
	}
}

func (p *YChartsProvider) Name() string { return "ycharts" }

func (p *YChartsProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorBullBearSpread}
}

func (p *YChartsProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "ycharts.fetch")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(p.Name(), resp)
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	period := ""
	m := ychartsWeekRe.FindSubmatch(html)
	if m != nil {
		period = string(m[2])
		if ts, err := time.Parse("Jan 2 2006", period); err == nil {
			asOf = ts.UTC()
		}
	} else {
		m = ychartsLastRe.FindSubmatch(html)
	}
	if m == nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("bull-bear spread not found in page (login wall or layout change)"))
	}

	value, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("parse spread %q: %w", m[1], err))
	}

	meta := map[string]string{"url": p.baseURL, "definition": "AAII Bull% - Bear%"}
	if period != "" {
		meta["period"] = period
	}

	return []domain.Observation{{
		IndicatorID: domain.IndicatorBullBearSpread,
		AsOf:        asOf,
		Value:       value,
		Unit:        "%",
		Source:      "YCharts:AAII",
		Meta:        meta,
	}}, nil
}

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

const investingRSIURL = "https://www.investing.com/indices/us-spx-500-technical"

// Patterns ordered from most to least specific; the table label varies
// between "RSI(14)" and the spelled-out form.
var rsiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Relative\s+Strength\s+Index\s*\(14\)[^0-9]{0,80}([0-9]{1,3}(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)RSI\s*\(14\)[^0-9]{0,80}([0-9]{1,3}(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)RSI\s*-\s*Relative\s+Strength\s+Index[^0-9]{0,120}([0-9]{1,3}(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)\bRSI\b[^0-9]{0,40}([0-9]{1,3}(?:\.[0-9]+)?)`),
}

// RSIProvider scrapes the daily RSI(14) for the S&P 500 from the
// investing.com technical-analysis table.
type RSIProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewRSIProvider(tracer trace.Tracer) *RSIProvider {
	return &RSIProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: investingRSIURL,
		tracer:  tracer,
	}
}

func (p *RSIProvider) Name() string { return "rsi" }

func (p *RSIProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorSP500RSI}
}

func (p *RSIProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "rsi.fetch")
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

	value, ok := parseRSI(html)
	if !ok {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("RSI(14) value not found in page"))
	}

	return []domain.Observation{{
		IndicatorID: domain.IndicatorSP500RSI,
		AsOf:        time.Now().UTC().Truncate(24 * time.Hour),
		Value:       value,
		Unit:        "0-100",
		Source:      "investing.com",
		Meta:        map[string]string{"url": p.baseURL, "window": "14"},
	}}, nil
}

func parseRSI(html []byte) (float64, bool) {
	for _, re := range rsiPatterns {
		m := re.FindSubmatch(html)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(string(m[1]), 64)
		if err == nil && v >= 0 && v <= 100 {
			return v, true
		}
	}
	return 0, false
}

package provider

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	hyOASSeriesID = "BAMLH0A0HYM2"

	tradingEconomicsHYURL = "https://tradingeconomics.com/united-states/" +
		"bofa-merrill-lynch-us-high-yield-option-adjusted-spread-fed-data.html"
	fredAPIBaseURL   = "https://api.stlouisfed.org/fred"
	fredGraphCSVBase = "https://fred.stlouisfed.org/graph/fredgraph.csv"
)

var (
	teMetaDescRe = regexp.MustCompile(`(?i)<meta[^>]+id="metaDesc"[^>]+content="([^"]+)"`)
	teWasPctRe   = regexp.MustCompile(`(?i)\bwas\s*([0-9]+(?:\.[0-9]+)?)\s*%`)
	tePctRe      = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)
)

// FredProvider produces the US high-yield OAS in basis points. Source
// order: TradingEconomics page scrape (most reachable), FRED API when a
// key is configured, then the public fredgraph CSV. FRED publishes the
// series in percent; values are normalized x100 before commit so the
// bp thresholds apply directly.
type FredProvider struct {
	client      *http.Client
	teURL       string
	apiBaseURL  string
	graphCSVURL string
	apiKey      string
	limiter     *RateLimiter
	tracer      trace.Tracer
}

func NewFredProvider(tracer trace.Tracer, apiKey string) *FredProvider {
	return &FredProvider{
		client:      &http.Client{Timeout: 30 * time.Second},
		teURL:       tradingEconomicsHYURL,
		apiBaseURL:  fredAPIBaseURL,
		graphCSVURL: fredGraphCSVBase,
		apiKey:      apiKey,
		// FRED allows 120 requests/minute per key.
		limiter: NewRateLimiter(2, time.Second),
		tracer:  tracer,
	}
}

func (p *FredProvider) Name() string { return "fred" }

func (p *FredProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorHighYieldOAS}
}

func (p *FredProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "fred.fetch")
	defer span.End()

	if obs, err := p.fetchTradingEconomics(ctx); err == nil {
		return []domain.Observation{obs}, nil
	} else if ctx.Err() != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, ctx.Err())
	}

	if p.apiKey != "" {
		if obs, err := p.fetchFredAPI(ctx); err == nil {
			return []domain.Observation{obs}, nil
		} else if ctx.Err() != nil {
			return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, ctx.Err())
		}
	}

	obs, err := p.fetchFredGraphCSV(ctx)
	if err != nil {
		return nil, err
	}
	return []domain.Observation{obs}, nil
}

func (p *FredProvider) fetchTradingEconomics(ctx context.Context) (domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.teURL, nil)
	if err != nil {
		return domain.Observation{}, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Observation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, fmt.Errorf("tradingeconomics returned %d", resp.StatusCode)
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Observation{}, err
	}

	pct, ok := parseTEPercent(html)
	if !ok {
		return domain.Observation{}, fmt.Errorf("OAS percent not found in page")
	}

	return domain.Observation{
		IndicatorID: domain.IndicatorHighYieldOAS,
		AsOf:        time.Now().UTC().Truncate(24 * time.Hour),
		Value:       pct * 100.0,
		Unit:        "bp",
		Source:      "TradingEconomics",
		Meta: map[string]string{
			"url":         p.teURL,
			"raw_percent": strconv.FormatFloat(pct, 'f', -1, 64),
		},
	}, nil
}

// parseTEPercent prefers the meta description ("... Spread was 2.83% in
// December ..."); the body fallback drops candidates >= 30 because those
// are layout percentages, not spreads.
func parseTEPercent(html []byte) (float64, bool) {
	if mm := teMetaDescRe.FindSubmatch(html); mm != nil {
		desc := mm[1]
		m := teWasPctRe.FindSubmatch(desc)
		if m == nil {
			m = tePctRe.FindSubmatch(desc)
		}
		if m != nil {
			if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
				return v, true
			}
		}
	}
	for _, m := range tePctRe.FindAllSubmatch(html, -1) {
		v, err := strconv.ParseFloat(string(m[1]), 64)
		if err == nil && v < 30 {
			return v, true
		}
	}
	return 0, false
}

func (p *FredProvider) fetchFredAPI(ctx context.Context) (domain.Observation, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.Observation{}, err
	}

	q := url.Values{}
	q.Set("series_id", hyOASSeriesID)
	q.Set("api_key", p.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.apiBaseURL+"/series/observations?"+q.Encode(), nil)
	if err != nil {
		return domain.Observation{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Observation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderAuthRequired,
			fmt.Errorf("FRED API rejected key: %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, fmt.Errorf("FRED API returned %d", resp.StatusCode)
	}

	var payload struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Observation{}, fmt.Errorf("decode FRED response: %w", err)
	}

	for _, row := range payload.Observations {
		if row.Value == "" || row.Value == "." {
			continue
		}
		pct, err := strconv.ParseFloat(row.Value, 64)
		if err != nil {
			continue
		}
		asOf, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		return domain.Observation{
			IndicatorID: domain.IndicatorHighYieldOAS,
			AsOf:        asOf.UTC(),
			Value:       pct * 100.0,
			Unit:        "bp",
			Source:      "FRED_API:" + hyOASSeriesID,
			Meta: map[string]string{
				"fred_series_id": hyOASSeriesID,
				"raw_percent":    row.Value,
			},
		}, nil
	}
	return domain.Observation{}, fmt.Errorf("FRED response has no usable rows")
}

func (p *FredProvider) fetchFredGraphCSV(ctx context.Context) (domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.graphCSVURL+"?id="+hyOASSeriesID, nil)
	if err != nil {
		return domain.Observation{}, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/plain,text/csv,*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, classifyStatus(p.Name(), resp)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("parse fredgraph csv: %w", err))
	}

	// Rows are date-ascending; take the last non-missing value.
	for i := len(records) - 1; i >= 1; i-- {
		row := records[i]
		if len(row) < 2 {
			continue
		}
		val := strings.TrimSpace(row[1])
		if val == "" || val == "." {
			continue
		}
		pct, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		asOf, err := time.Parse("2006-01-02", strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		return domain.Observation{
			IndicatorID: domain.IndicatorHighYieldOAS,
			AsOf:        asOf.UTC(),
			Value:       pct * 100.0,
			Unit:        "bp",
			Source:      "FRED:fredgraph",
			Meta: map[string]string{
				"fred_series_id": hyOASSeriesID,
				"raw_percent":    val,
			},
		}, nil
	}
	return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
		fmt.Errorf("fredgraph csv has no usable rows"))
}

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

const barchartNDTWURL = "https://www.barchart.com/stocks/quotes/$NDTW"

var ndtwPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)(?:20[-\s]?Day[-\s]?Average|Above[-\s]?20[-\s]?Day|Stocks[-\s]?Above[-\s]?20[-\s]?Day).{0,300}?([0-9]{1,3}(?:\.[0-9]+)?)\s*%`),
	regexp.MustCompile(`(?is)([0-9]{1,3}(?:\.[0-9]+)?)\s*%.{0,300}?(?:20[-\s]?Day[-\s]?Average|Above[-\s]?20[-\s]?Day)`),
	regexp.MustCompile(`(?is)\$?NDTW.{0,300}?([0-9]{1,3}(?:\.[0-9]+)?)\s*%`),
}

// NDTWProvider scrapes the percentage of Nasdaq 100 members above their
// 20-day moving average from the barchart $NDTW quote page. Values below
// 10 are rejected: the page's LAST field is an index level, not a
// percentage, and has been mistaken for one before.
type NDTWProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewNDTWProvider(tracer trace.Tracer) *NDTWProvider {
	return &NDTWProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: barchartNDTWURL,
		tracer:  tracer,
	}
}

func (p *NDTWProvider) Name() string { return "ndtw" }

func (p *NDTWProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorNasdaqBreadth}
}

func (p *NDTWProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "ndtw.fetch")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

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

	value, ok := parseBreadthPercent(html)
	if !ok {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("breadth percentage not found in page"))
	}

	return []domain.Observation{{
		IndicatorID: domain.IndicatorNasdaqBreadth,
		AsOf:        time.Now().UTC().Truncate(24 * time.Hour),
		Value:       value,
		Unit:        "%",
		Source:      "barchart.com",
		Meta:        map[string]string{"url": p.baseURL, "symbol": "$NDTW"},
	}}, nil
}

func parseBreadthPercent(html []byte) (float64, bool) {
	for _, re := range ndtwPatterns {
		m := re.FindSubmatch(html)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(string(m[1]), 64)
		if err == nil && v >= 10 && v <= 100 {
			return v, true
		}
	}
	return 0, false
}

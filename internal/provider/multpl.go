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

const multplPEURL = "https://www.multpl.com/s-p-500-pe-ratio"

var (
	multplMetaRe = regexp.MustCompile(`(?i)content="[^"]*Current\s*S&P\s*500\s*PE\s*Ratio\s*is\s*([0-9]+(?:\.[0-9]+)?)`)
	multplTextRe = regexp.MustCompile(`(?i)Current\s*S&P\s*500\s*PE\s*Ratio.*?([0-9]+(?:\.[0-9]+)?)`)
)

// MultplProvider scrapes the current S&P 500 P/E from multpl.com. The page
// body is JS-rendered, but the meta description reliably carries the value.
type MultplProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewMultplProvider(tracer trace.Tracer) *MultplProvider {
	return &MultplProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: multplPEURL,
		tracer:  tracer,
	}
}

func (p *MultplProvider) Name() string { return "multpl" }

func (p *MultplProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorSP500PE}
}

func (p *MultplProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "multpl.fetch")
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

	m := multplMetaRe.FindSubmatch(html)
	if m == nil {
		m = multplTextRe.FindSubmatch(html)
	}
	if m == nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("PE ratio not found in page (layout may have changed)"))
	}

	value, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("parse PE ratio %q: %w", m[1], err))
	}

	return []domain.Observation{{
		IndicatorID: domain.IndicatorSP500PE,
		AsOf:        time.Now().UTC().Truncate(24 * time.Hour),
		Value:       value,
		Unit:        "x",
		Source:      "multpl.com",
		Meta:        map[string]string{"url": p.baseURL},
	}}, nil
}

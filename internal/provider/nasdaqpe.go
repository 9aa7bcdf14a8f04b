package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
)

const barronsPEURL = "https://www.barrons.com/market-data/stocks/us/pe-yields"

var (
	nextDataRe = regexp.MustCompile(`(?is)<script[^>]*id="__NEXT_DATA__"[^>]*>(.*?)</script>`)
	// Anchored fallback: only a number within a bounded window after the
	// "Nasdaq 100" label, never an arbitrary page-wide float.
	anchoredPERe = regexp.MustCompile(`(?i)Nasdaq\s*100(?:.{0,600}?)([0-9]{1,3}\.[0-9]{1,4})`)
	peNumberRe   = regexp.MustCompile(`([0-9]{1,3}(?:\.[0-9]{1,4})?)`)
)

var peFieldKeys = []string{"peRatio", "pe", "pe_ratio", "peRatioTTM", "priceEarnings", "priceToEarnings"}

// NasdaqPEProvider reads the Nasdaq 100 P/E from Barron's pe-yields page.
// The page is Next.js; the data sits in the __NEXT_DATA__ JSON blob, so
// the primary path walks that for the "Nasdaq 100" record.
type NasdaqPEProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewNasdaqPEProvider(tracer trace.Tracer) *NasdaqPEProvider {
	return &NasdaqPEProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: barronsPEURL,
		tracer:  tracer,
	}
}

func (p *NasdaqPEProvider) Name() string { return "nasdaqpe" }

func (p *NasdaqPEProvider) Indicators() []domain.IndicatorID {
	return []domain.IndicatorID{domain.IndicatorNasdaq100PE}
}

func (p *NasdaqPEProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "nasdaqpe.fetch")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Referer", "https://www.barrons.com/")

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

	method := "__NEXT_DATA__"
	value, ok := parseNextDataPE(html)
	if !ok {
		method = "anchored_html"
		value, ok = parseAnchoredPE(html)
	}
	if !ok {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("Nasdaq 100 P/E not found in page"))
	}

	return []domain.Observation{{
		IndicatorID: domain.IndicatorNasdaq100PE,
		AsOf:        time.Now().UTC().Truncate(24 * time.Hour),
		Value:       value,
		Unit:        "x",
		Source:      "Barron's",
		Meta:        map[string]string{"url": p.baseURL, "method": method},
	}}, nil
}

func parseNextDataPE(html []byte) (float64, bool) {
	m := nextDataRe.FindSubmatch(html)
	if m == nil {
		return 0, false
	}
	raw := strings.TrimSpace(string(m[1]))
	if raw == "" || !gjson.Valid(raw) {
		return 0, false
	}
	return findNasdaq100PE(gjson.Parse(raw))
}

// findNasdaq100PE walks arbitrary nested JSON for an object naming
// "Nasdaq 100" and reads a P/E field from it.
func findNasdaq100PE(node gjson.Result) (float64, bool) {
	if node.IsObject() {
		if nodeNamesNasdaq100(node) {
			for _, key := range peFieldKeys {
				if field := node.Get(key); field.Exists() {
					if v, ok := numericPE(field); ok {
						return v, true
					}
				}
			}
			for _, key := range []string{"value", "values", "data"} {
				if child := node.Get(key); child.Exists() {
					if v, ok := findNasdaq100PE(child); ok {
						return v, true
					}
				}
			}
		}
	}
	if node.IsObject() || node.IsArray() {
		var found float64
		var ok bool
		node.ForEach(func(_, child gjson.Result) bool {
			if v, o := findNasdaq100PE(child); o {
				found, ok = v, true
				return false
			}
			return true
		})
		return found, ok
	}
	return 0, false
}

func nodeNamesNasdaq100(node gjson.Result) bool {
	for _, key := range []string{"name", "label", "title", "description"} {
		s := strings.ToLower(strings.TrimSpace(node.Get(key).String()))
		if s != "" && strings.Contains(s, "nasdaq 100") {
			return true
		}
	}
	return false
}

func numericPE(field gjson.Result) (float64, bool) {
	switch field.Type {
	case gjson.Number:
		v := field.Float()
		return v, plausiblePE(v)
	case gjson.String:
		// Accept "32.65", "32.65x", "32.65 x".
		m := peNumberRe.FindStringSubmatch(field.String())
		if m == nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return v, plausiblePE(v)
	default:
		return 0, false
	}
}

func parseAnchoredPE(html []byte) (float64, bool) {
	compact := regexp.MustCompile(`\s+`).ReplaceAll(html, []byte(" "))
	m := anchoredPERe.FindSubmatch(compact)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, false
	}
	return v, plausiblePE(v)
}

func plausiblePE(v float64) bool { return v >= 5 && v <= 200 }

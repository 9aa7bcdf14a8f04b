package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// HTTPJSONConfig is the YAML file wiring arbitrary JSON APIs to
// indicators without touching engine code:
//
//	indicators:
//	  us_high_yield_spread:
//	    url: "https://example.com/hy"
//	    method: "GET"
//	    headers:
//	      Authorization: "Bearer xxx"
//	    params:
//	      symbol: "HY_OAS"
//	    value_path: "data.value"
//	    as_of_path: "data.date"   # optional, ISO date
//	    unit: "bp"
//	    source: "my_api"
type HTTPJSONConfig struct {
	Indicators map[string]HTTPJSONEndpoint `yaml:"indicators"`
}

type HTTPJSONEndpoint struct {
	URL       string            `yaml:"url"`
	Method    string            `yaml:"method"`
	Headers   map[string]string `yaml:"headers"`
	Params    map[string]string `yaml:"params"`
	ValuePath string            `yaml:"value_path"`
	AsOfPath  string            `yaml:"as_of_path"`
	Unit      string            `yaml:"unit"`
	Source    string            `yaml:"source"`
}

// HTTPJSONProvider serves every indicator the config file maps. The file
// is re-read each run, so mapping edits land without a restart. Endpoints
// fail independently: one bad API never voids the rest of the batch.
type HTTPJSONProvider struct {
	client     *http.Client
	configPath string
	tracer     trace.Tracer
}

func NewHTTPJSONProvider(tracer trace.Tracer, configPath string) *HTTPJSONProvider {
	return &HTTPJSONProvider{
		client:     &http.Client{Timeout: 20 * time.Second},
		configPath: configPath,
		tracer:     tracer,
	}
}

func (p *HTTPJSONProvider) Name() string { return "http" }

// Indicators reports the full catalog: the actual coverage depends on the
// config file, which is not read until fetch time.
func (p *HTTPJSONProvider) Indicators() []domain.IndicatorID {
	out := make([]domain.IndicatorID, 0, len(domain.Indicators()))
	for _, ind := range domain.Indicators() {
		out = append(out, ind.ID)
	}
	return out
}

func (p *HTTPJSONProvider) loadConfig() (HTTPJSONConfig, error) {
	var cfg HTTPJSONConfig
	raw, err := os.ReadFile(p.configPath)
	if err != nil {
		return cfg, domain.NewProviderError(p.Name(), domain.ProviderUnavailable,
			fmt.Errorf("read http provider config %s: %w", p.configPath, err))
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("parse http provider config %s: %w", p.configPath, err))
	}
	for id := range cfg.Indicators {
		if !domain.KnownIndicator(domain.IndicatorID(id)) {
			return cfg, domain.NewProviderError(p.Name(), domain.ProviderParseError,
				fmt.Errorf("http provider config maps unknown indicator %q", id))
		}
	}
	return cfg, nil
}

func (p *HTTPJSONProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "httpjson.fetch")
	defer span.End()

	cfg, err := p.loadConfig()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Observation, 0, len(cfg.Indicators))
	var lastErr error
	for _, ind := range domain.Indicators() {
		endpoint, ok := cfg.Indicators[string(ind.ID)]
		if !ok {
			continue
		}
		obs, err := p.fetchOne(ctx, ind.ID, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, obs)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (p *HTTPJSONProvider) fetchOne(ctx context.Context, id domain.IndicatorID, endpoint HTTPJSONEndpoint) (domain.Observation, error) {
	method := strings.ToUpper(endpoint.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := endpoint.URL
	if len(endpoint.Params) > 0 {
		q := url.Values{}
		for k, v := range endpoint.Params {
			q.Set(k, v)
		}
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return domain.Observation{}, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range endpoint.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Observation{}, classifyStatus(p.Name(), resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderUnavailable, err)
	}

	value := gjson.GetBytes(body, endpoint.ValuePath)
	if !value.Exists() {
		return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("%s: value path %q not found in response", id, endpoint.ValuePath))
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if endpoint.AsOfPath != "" {
		rawDate := gjson.GetBytes(body, endpoint.AsOfPath).String()
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			return domain.Observation{}, domain.NewProviderError(p.Name(), domain.ProviderParseError,
				fmt.Errorf("%s: as_of %q is not an ISO date: %w", id, rawDate, err))
		}
		asOf = parsed.UTC()
	}

	unit := endpoint.Unit
	if unit == "" {
		unit = "%"
	}
	source := endpoint.Source
	if source == "" {
		source = "http_json"
	}

	return domain.Observation{
		IndicatorID: id,
		AsOf:        asOf,
		Value:       value.Float(),
		Unit:        unit,
		Source:      source,
		Meta:        map[string]string{"url": endpoint.URL, "value_path": endpoint.ValuePath},
	}, nil
}

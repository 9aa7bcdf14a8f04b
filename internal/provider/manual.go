package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// manualRecord is one hand-entered value, e.g. copied from a research
// note the engine cannot scrape:
//
//	bofa_bull_bear:
//	  value: 4.8
//	  unit: "%"
//	  as_of: "2026-03-18"
//	  source: "BofA FMS"
type manualRecord struct {
	Value  float64 `yaml:"value"`
	Unit   string  `yaml:"unit"`
	AsOf   string  `yaml:"as_of"`
	Source string  `yaml:"source"`
	Note   string  `yaml:"note"`
}

// ManualProvider is the pseudo-provider reading a YAML file of manual
// records. The file is re-read on every fetch so edits land on the next
// run without a restart.
type ManualProvider struct {
	path   string
	tracer trace.Tracer
}

func NewManualProvider(tracer trace.Tracer, path string) *ManualProvider {
	return &ManualProvider{path: path, tracer: tracer}
}

func (p *ManualProvider) Name() string { return "manual" }

func (p *ManualProvider) Indicators() []domain.IndicatorID {
	out := make([]domain.IndicatorID, 0, len(domain.Indicators()))
	for _, ind := range domain.Indicators() {
		out = append(out, ind.ID)
	}
	return out
}

func (p *ManualProvider) Fetch(ctx context.Context) ([]domain.Observation, error) {
	_, span := p.tracer.Start(ctx, "manual.fetch")
	defer span.End()

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderUnavailable,
			fmt.Errorf("read manual input %s: %w", p.path, err))
	}

	records := map[string]manualRecord{}
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
			fmt.Errorf("parse manual input %s: %w", p.path, err))
	}

	out := make([]domain.Observation, 0, len(records))
	for key, rec := range records {
		id := domain.IndicatorID(key)
		if !domain.KnownIndicator(id) {
			return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
				fmt.Errorf("manual input maps unknown indicator %q", key))
		}
		asOf, err := time.Parse("2006-01-02", rec.AsOf)
		if err != nil {
			return nil, domain.NewProviderError(p.Name(), domain.ProviderParseError,
				fmt.Errorf("manual input %s: as_of %q is not an ISO date: %w", key, rec.AsOf, err))
		}
		source := rec.Source
		if source == "" {
			source = "manual"
		}
		meta := map[string]string{}
		if rec.Note != "" {
			meta["note"] = rec.Note
		}
		out = append(out, domain.Observation{
			IndicatorID: id,
			AsOf:        asOf.UTC(),
			Value:       rec.Value,
			Unit:        rec.Unit,
			Source:      source,
			Meta:        meta,
		})
	}
	return out, nil
}

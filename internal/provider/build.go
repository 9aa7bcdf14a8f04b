package provider

import (
	"go.opentelemetry.io/otel/trace"
)

// BuildOptions carries the config the concrete providers need.
type BuildOptions struct {
	FredAPIKey      string
	HTTPConfigPath  string
	ManualInputPath string
}

// BuildRegistry constructs the full provider set. Registration order is
// the canonical display order; config chooses the enabled subset.
func BuildRegistry(tracer trace.Tracer, opts BuildOptions) (*Registry, error) {
	r := NewRegistry()
	fetchers := []Fetcher{
		NewHTTPJSONProvider(tracer, opts.HTTPConfigPath),
		NewYChartsProvider(tracer),
		NewCNNProvider(tracer),
		NewVIXProvider(tracer),
		NewMultplProvider(tracer),
		NewNasdaqPEProvider(tracer),
		NewFredProvider(tracer, opts.FredAPIKey),
		NewRSIProvider(tracer),
		NewNDTWProvider(tracer),
		NewManualProvider(tracer, opts.ManualInputPath),
	}
	for _, f := range fetchers {
		if err := r.Register(f.Name(), f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

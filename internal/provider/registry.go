package provider

import (
	"fmt"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
)

// Registry maps provider names to Fetcher implementations. It is built
// once at startup and read-only afterwards; there is no dynamic
// registration during operation.
type Registry struct {
	fetchers map[string]Fetcher
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

func (r *Registry) Register(name string, f Fetcher) error {
	if _, exists := r.fetchers[name]; exists {
		return fmt.Errorf("provider %q registered twice", name)
	}
	r.fetchers[name] = f
	r.order = append(r.order, name)
	return nil
}

// Resolve maps configured names to fetchers, preserving the requested
// order for deterministic logging. An unknown name fails the whole
// resolution: startup must not proceed with a partial provider list.
func (r *Registry) Resolve(names []string) ([]Fetcher, error) {
	out := make([]Fetcher, 0, len(names))
	for _, name := range names {
		f, ok := r.fetchers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

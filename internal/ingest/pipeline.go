package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

// Store is the slice of the repository the pipeline needs.
type Store interface {
	UpsertBatch(ctx context.Context, observations []domain.Observation) (int, error)
}

// Pipeline fans configured providers out concurrently and commits each
// provider's batch independently. The run deadline is the only
// cancellation: a slow provider is cut off by the context, never by
// another provider's failure.
type Pipeline struct {
	store  Store
	tracer trace.Tracer
}

func NewPipeline(store Store, tracer trace.Tracer) *Pipeline {
	return &Pipeline{store: store, tracer: tracer}
}

// Run executes one ingestion pass. Every fetcher gets exactly one entry
// in the report, in the order the fetchers were given, so callers can
// line reports up across runs.
func (p *Pipeline) Run(ctx context.Context, fetchers []provider.Fetcher, timeout time.Duration) domain.IngestionReport {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, span := p.tracer.Start(runCtx, "ingest.run")
	defer span.End()

	report := domain.IngestionReport{
		StartedAt: time.Now().UTC(),
		Providers: make([]domain.ProviderReport, len(fetchers)),
	}

	var wg sync.WaitGroup
	for i, fetcher := range fetchers {
		wg.Add(1)
		go func(i int, fetcher provider.Fetcher) {
			defer wg.Done()
			report.Providers[i] = p.runProvider(runCtx, fetcher)
		}(i, fetcher)
	}
	wg.Wait()

	report.FinishedAt = time.Now().UTC()
	return report
}

// runProvider fetches and commits one provider's batch. A batch from a
// provider that missed the deadline is discarded, not half-written:
// the upsert runs on the same deadline context.
func (p *Pipeline) runProvider(ctx context.Context, fetcher provider.Fetcher) domain.ProviderReport {
	_, span := p.tracer.Start(ctx, "ingest.provider."+fetcher.Name())
	defer span.End()

	start := time.Now()
	out := domain.ProviderReport{Provider: fetcher.Name()}

	observations, err := fetcher.Fetch(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		out.Error = err.Error()
		out.ErrorKind = domain.ProviderKindOf(err)
		out.Duration = time.Since(start)
		return out
	}

	written, err := p.store.UpsertBatch(ctx, observations)
	if err != nil {
		out.Error = "commit: " + err.Error()
		out.ErrorKind = domain.ProviderUnavailable
		out.Observations = written
		out.Duration = time.Since(start)
		return out
	}

	out.Succeeded = true
	out.Observations = written
	out.Duration = time.Since(start)
	return out
}

package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

// RunRecorder persists run reports for the audit trail.
type RunRecorder interface {
	RecordRun(ctx context.Context, report domain.IngestionReport) error
	LastRun(ctx context.Context) (*domain.IngestionReport, error)
}

// Service runs the ingestion pipeline over the providers named in
// config. Provider names are resolved once at construction so a typo in
// config fails startup instead of every scheduled run.
type Service struct {
	tracer   trace.Tracer
	pipeline *Pipeline
	fetchers []provider.Fetcher
	recorder RunRecorder
	onCommit func(ctx context.Context)
	timeout  time.Duration
}

func NewService(
	tracer trace.Tracer,
	pipeline *Pipeline,
	registry *provider.Registry,
	names []string,
	recorder RunRecorder,
	onCommit func(ctx context.Context),
	timeout time.Duration,
) (*Service, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	fetchers, err := registry.Resolve(names)
	if err != nil {
		return nil, err
	}

	return &Service{
		tracer:   tracer,
		pipeline: pipeline,
		fetchers: fetchers,
		recorder: recorder,
		onCommit: onCommit,
		timeout:  timeout,
	}, nil
}

// Providers lists the resolved provider names in run order.
func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.fetchers))
	for _, f := range s.fetchers {
		out = append(out, f.Name())
	}
	return out
}

// Run executes one ingestion pass and returns its report. The report is
// recorded and the signal cache invalidated best-effort: neither failure
// voids the run itself.
func (s *Service) Run(ctx context.Context) domain.IngestionReport {
	_, span := s.tracer.Start(ctx, "ingest.service-run")
	defer span.End()

	report := s.pipeline.Run(ctx, s.fetchers, s.timeout)

	log.Printf("Ingestion run finished: %d/%d providers succeeded, %d observations in %s",
		report.Succeeded(), len(report.Providers), report.ObservationsWritten(),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, p := range report.Providers {
		if !p.Succeeded {
			log.Printf("Warning: provider %s failed (%s): %s", p.Provider, p.ErrorKind, p.Error)
		}
	}

	if s.recorder != nil {
		if err := s.recorder.RecordRun(ctx, report); err != nil {
			log.Printf("Warning: failed to record ingestion run: %v", err)
		}
	}
	if s.onCommit != nil && report.ObservationsWritten() > 0 {
		s.onCommit(ctx)
	}
	return report
}

// LastReport returns the most recently persisted run report, or nil
// when no run has been recorded.
func (s *Service) LastReport(ctx context.Context) (*domain.IngestionReport, error) {
	if s.recorder == nil {
		return nil, nil
	}
	return s.recorder.LastRun(ctx)
}

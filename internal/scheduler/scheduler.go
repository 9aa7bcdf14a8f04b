package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateStopped  State = "stopped"
)

// Runner is the ingestion entry point the scheduler drives.
type Runner interface {
	Run(ctx context.Context) domain.IngestionReport
}

// Scheduler drives periodic ingestion runs and accepts manual triggers.
// At most one run is ever in flight; triggers landing during a run
// coalesce into a single follow-up. Stopped is terminal.
type Scheduler struct {
	tracer   trace.Tracer
	runner   Runner
	interval time.Duration

	mu         sync.Mutex
	state      State
	lastReport *domain.IngestionReport
	nextRun    time.Time
	cancelRun  context.CancelFunc

	trigger  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func New(tracer trace.Tracer, runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		tracer:   tracer,
		runner:   runner,
		interval: interval,
		state:    StateIdle,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Start blocks, running immediately and then on every tick or pending
// trigger, until the context ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if s.runner == nil {
		log.Println("Scheduler disabled: no runner")
		<-ctx.Done()
		return
	}

	s.runOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger:
			s.runOnce(ctx)
		}
	}
}

// Trigger requests a run now. Returns false when the scheduler is
// stopped or a trigger is already pending; the pending run covers both.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	stopped := s.state == StateStopped
	s.mu.Unlock()
	if stopped {
		return false
	}

	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Stop ends scheduling permanently and cancels any run in flight.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.state = StateStopped
		if s.cancelRun != nil {
			s.cancelRun()
		}
		s.mu.Unlock()
		close(s.stop)
		log.Println("Scheduler stopped")
	})
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastReport returns the report of the most recent completed run in
// this process, or nil before the first run finishes.
func (s *Scheduler) LastReport() *domain.IngestionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// NextRun is the earliest time the next periodic run starts. Zero
// before the first run completes or after Stop.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateFetching
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel
	s.mu.Unlock()
	defer cancel()

	_, span := s.tracer.Start(runCtx, "scheduler.run-once")
	defer span.End()

	report := s.runner.Run(runCtx)

	s.mu.Lock()
	s.lastReport = &report
	s.cancelRun = nil
	if s.state != StateStopped {
		s.state = StateIdle
		s.nextRun = time.Now().UTC().Add(s.interval)
	} else {
		s.nextRun = time.Time{}
	}
	s.mu.Unlock()
}

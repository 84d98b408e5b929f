package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/templodoabismo/pluma/internal/domain"
	"github.com/templodoabismo/pluma/internal/metrics"
	"github.com/templodoabismo/pluma/internal/usecase"
)

var schedulerTracer = otel.Tracer("scheduler")

// DefaultInterval is the sweep period when none is configured.
const DefaultInterval = 30 * time.Minute

// Sweeper fills in today's missing manifestations.
type Sweeper interface {
	EnsureTodayComplete(ctx context.Context) (usecase.SweepReport, error)
}

// SchedulerStatus is a snapshot of the sweep loop.
type SchedulerStatus struct {
	State      string               `json:"state"`
	Running    bool                 `json:"running"`
	Interval   string               `json:"interval"`
	LastRun    *time.Time           `json:"lastRun,omitempty"`
	NextRun    *time.Time           `json:"nextRun,omitempty"`
	LastError  string               `json:"lastError,omitempty"`
	RunCount   int                  `json:"runCount"`
	LastReport *usecase.SweepReport `json:"lastReport,omitempty"`
}

// Scheduler periodically runs a completeness sweep. The zero value is not
// usable; construct it with NewScheduler.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	state      domain.SchedulerState
	ticker     *time.Ticker
	cancel     context.CancelFunc
	done       chan struct{}
	lastRun    *time.Time
	nextRun    *time.Time
	lastError  error
	lastReport *usecase.SweepReport
	runCount   int
}

func NewScheduler(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		state:    domain.SchedulerStopped,
	}
}

// Start runs one sweep immediately and then one per interval. Calling Start on
// a running scheduler only logs a warning. The loop is not bound to ctx's
// cancellation; use Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state == domain.SchedulerRunning {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "scheduler already running",
			slog.String("module", "scheduler"),
		)
		return
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ticker := time.NewTicker(s.interval)
	done := make(chan struct{})

	s.state = domain.SchedulerRunning
	s.ticker = ticker
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	metrics.SetSchedulerRunning(true)
	s.logger.InfoContext(ctx, "scheduler started",
		slog.String("interval", s.interval.String()),
		slog.String("module", "scheduler"),
	)

	s.runSweep(loopCtx)

	go s.loop(loopCtx, ticker, done)
}

// Stop halts the loop and waits for it to exit. A sweep in flight finishes
// first. Stopping a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == domain.SchedulerStopped {
		s.mu.Unlock()
		return
	}

	s.ticker.Stop()
	s.cancel()
	done := s.done

	s.state = domain.SchedulerStopped
	s.ticker = nil
	s.cancel = nil
	s.done = nil
	s.nextRun = nil
	s.mu.Unlock()

	<-done

	metrics.SetSchedulerRunning(false)
	s.logger.Info("scheduler stopped",
		slog.String("module", "scheduler"),
	)
}

func (s *Scheduler) Restart(ctx context.Context) {
	s.Stop()
	s.Start(ctx)
}

func (s *Scheduler) State() domain.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		State:      s.state.String(),
		Running:    s.state == domain.SchedulerRunning,
		Interval:   s.interval.String(),
		LastRun:    s.lastRun,
		NextRun:    s.nextRun,
		RunCount:   s.runCount,
		LastReport: s.lastReport,
	}
	if s.lastError != nil {
		status.LastError = s.lastError.Error()
	}
	return status
}

func (s *Scheduler) loop(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

// runSweep executes one sweep detached from the loop's cancellation. Errors
// and panics are recorded and never escape.
func (s *Scheduler) runSweep(loopCtx context.Context) {
	// Each sweep is its own trace, whatever context started the loop.
	ctx, span := schedulerTracer.Start(context.WithoutCancel(loopCtx), "Scheduler.Sweep", trace.WithNewRoot())
	defer span.End()

	started := time.Now()
	report, err := s.safeSweep(ctx)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "sweep failed",
			slog.String("error", err.Error()),
			slog.String("module", "scheduler"),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runCount++
	s.lastRun = &started
	s.lastError = err
	if err == nil {
		s.lastReport = &report
	}
	if s.state == domain.SchedulerRunning {
		next := time.Now().Add(s.interval)
		s.nextRun = &next
	}
}

func (s *Scheduler) safeSweep(ctx context.Context) (report usecase.SweepReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()
	return s.sweeper.EnsureTodayComplete(ctx)
}

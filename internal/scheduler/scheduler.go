package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"notice_relay/internal/detector"
	"notice_relay/internal/domain"
	"notice_relay/internal/registry"
)

// Runner executes one polling cycle for a source.
type Runner interface {
	Run(ctx context.Context, src registry.Source, cursor *detector.Cursor, observe func(domain.State)) (*domain.CycleStats, error)
}

// Sources is the read side of the source registry.
type Sources interface {
	Get(id string) (registry.Source, error)
	List() []registry.Source
}

type Config struct {
	Interval          time.Duration
	CycleTimeout      time.Duration
	ShutdownGrace     time.Duration
	ReconcileInterval time.Duration
	Window            *Window
}

// Status is a snapshot of one source loop.
type Status struct {
	SourceID  string             `json:"source_id"`
	State     domain.State       `json:"state"`
	LastRun   time.Time          `json:"last_run,omitempty"`
	LastError string             `json:"last_error,omitempty"`
	LastStats *domain.CycleStats `json:"last_stats,omitempty"`
}

type loop struct {
	cursor   detector.Cursor
	interval time.Duration
	resize   chan time.Duration

	mu     sync.Mutex
	status Status
}

func (l *loop) setState(st domain.State) {
	l.mu.Lock()
	l.status.State = st
	l.mu.Unlock()
}

func (l *loop) finish(stats *domain.CycleStats, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.LastRun = time.Now()
	l.status.LastStats = stats
	l.status.LastError = ""
	if err != nil {
		l.status.LastError = err.Error()
	}
}

type Scheduler struct {
	runner  Runner
	sources Sources
	cfg     Config
	logger  *slog.Logger

	mu    sync.Mutex
	loops map[string]*loop
	wg    sync.WaitGroup
}

func NewScheduler(runner Runner, sources Sources, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 5 * time.Minute
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = time.Minute
	}
	return &Scheduler{
		runner:  runner,
		sources: sources,
		cfg:     cfg,
		logger:  logger.With("component", "scheduler"),
		loops:   make(map[string]*loop),
	}
}

// Start runs one loop per source until ctx is done. In-flight cycles then
// get the shutdown grace period before their context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"cycle_timeout", s.cfg.CycleTimeout,
		"active_hours", s.cfg.Window.String(),
	)

	hardCtx, hardCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer hardCancel()

	s.reconcile(ctx, hardCtx)

	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.drain(hardCancel)
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.reconcile(ctx, hardCtx)
		}
	}
}

func (s *Scheduler) drain(hardCancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	grace := time.NewTimer(s.cfg.ShutdownGrace)
	defer grace.Stop()

	select {
	case <-done:
		return
	case <-grace.C:
		s.logger.Warn("shutdown grace elapsed, cancelling in-flight cycles", "grace", s.cfg.ShutdownGrace)
		hardCancel()
	}
	<-done
}

// reconcile starts loops for sources that do not have one yet and passes
// interval changes to the running ones.
func (s *Scheduler) reconcile(ctx, hardCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range s.sources.List() {
		interval := s.intervalOf(src)
		if l, ok := s.loops[src.ID]; ok {
			if l.interval != interval {
				l.interval = interval
				select {
				case <-l.resize:
				default:
				}
				l.resize <- interval
			}
			continue
		}
		l := &loop{
			interval: interval,
			resize:   make(chan time.Duration, 1),
			status:   Status{SourceID: src.ID, State: domain.StateIdle},
		}
		s.loops[src.ID] = l

		s.wg.Add(1)
		go s.run(ctx, hardCtx, src.ID, interval, l)
	}
}

func (s *Scheduler) intervalOf(src registry.Source) time.Duration {
	if src.Interval > 0 {
		return src.Interval
	}
	return s.cfg.Interval
}

func (s *Scheduler) run(ctx, hardCtx context.Context, id string, interval time.Duration, l *loop) {
	defer s.wg.Done()

	s.logger.Info("source loop started", "source", id, "interval", interval)

	s.cycle(ctx, hardCtx, id, l)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-l.resize:
			s.logger.Info("source interval changed", "source", id, "interval", d)
			ticker.Reset(d)
		case <-ticker.C:
			s.cycle(ctx, hardCtx, id, l)
		}
	}
}

func (s *Scheduler) cycle(ctx, hardCtx context.Context, id string, l *loop) {
	if ctx.Err() != nil {
		return
	}
	if !s.cfg.Window.Allows(time.Now()) {
		s.logger.Debug("outside active hours, skipping cycle", "source", id)
		return
	}

	src, err := s.sources.Get(id)
	if err != nil {
		s.logger.Error("source disappeared from registry", "source", id, "error", err)
		return
	}

	cycleCtx, cancel := context.WithTimeout(hardCtx, s.cfg.CycleTimeout)
	defer cancel()

	stats, err := s.safeRun(cycleCtx, src, l)
	if err != nil && cycleCtx.Err() != nil {
		l.setState(domain.StateCancelled)
	}
	l.finish(stats, err)
	if err != nil {
		s.logger.Error("cycle failed", "source", id, "error", err)
	}
}

func (s *Scheduler) safeRun(ctx context.Context, src registry.Source, l *loop) (stats *domain.CycleStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.setState(domain.StateIdle)
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return s.runner.Run(ctx, src, &l.cursor, l.setState)
}

// States returns the status of every source loop.
func (s *Scheduler) States() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.loops))
	for _, l := range s.loops {
		l.mu.Lock()
		out = append(out, l.status)
		l.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

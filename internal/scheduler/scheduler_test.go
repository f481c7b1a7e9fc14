package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"notice_relay/internal/detector"
	"notice_relay/internal/domain"
	"notice_relay/internal/registry"
)

type fakeSources struct {
	mu   sync.Mutex
	srcs map[string]registry.Source
}

func (f *fakeSources) add(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.srcs[id] = registry.Source{ID: id}
	}
}

func (f *fakeSources) setInterval(id string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src := f.srcs[id]
	src.ID = id
	src.Interval = d
	f.srcs[id] = src
}

func (f *fakeSources) Get(id string) (registry.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.srcs[id]
	if !ok {
		return registry.Source{}, domain.ErrSourceNotFound
	}
	return src, nil
}

func (f *fakeSources) List() []registry.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]registry.Source, 0, len(f.srcs))
	for _, s := range f.srcs {
		out = append(out, s)
	}
	return out
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   map[string]int
	cursors map[string][]string
	run     func(ctx context.Context, src registry.Source, call int) error
}

func (f *fakeRunner) Run(ctx context.Context, src registry.Source, cursor *detector.Cursor, observe func(domain.State)) (*domain.CycleStats, error) {
	f.mu.Lock()
	f.calls[src.ID]++
	call := f.calls[src.ID]
	f.cursors[src.ID] = append(f.cursors[src.ID], cursor.Get())
	f.mu.Unlock()

	observe(domain.StateFetching)
	defer observe(domain.StateIdle)

	var err error
	if f.run != nil {
		err = f.run(ctx, src, call)
	}
	cursor.Set(src.ID + "-" + string(rune('0'+call)))
	return &domain.CycleStats{SourceID: src.ID}, err
}

func (f *fakeRunner) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type SchedulerTestSuite struct {
	suite.Suite
	sources *fakeSources
	runner  *fakeRunner
	logger  *slog.Logger
	cfg     Config
}

func (s *SchedulerTestSuite) SetupTest() {
	s.sources = &fakeSources{srcs: map[string]registry.Source{}}
	s.runner = &fakeRunner{calls: map[string]int{}, cursors: map[string][]string{}}
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cfg = Config{
		Interval:          20 * time.Millisecond,
		CycleTimeout:      time.Second,
		ShutdownGrace:     50 * time.Millisecond,
		ReconcileInterval: 20 * time.Millisecond,
	}
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) start(cfg Config) (context.CancelFunc, <-chan error, *Scheduler) {
	sched := NewScheduler(s.runner, s.sources, cfg, s.logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Start(ctx) }()
	return cancel, done, sched
}

func (s *SchedulerTestSuite) TestRunsEverySourceRepeatedly() {
	s.sources.add("a", "b")
	cancel, done, sched := s.start(s.cfg)

	s.Eventually(func() bool {
		return s.runner.count("a") >= 3 && s.runner.count("b") >= 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)

	s.runner.mu.Lock()
	cursors := append([]string(nil), s.runner.cursors["a"]...)
	s.runner.mu.Unlock()
	s.Equal("", cursors[0])
	s.Equal("a-1", cursors[1])

	states := sched.States()
	s.Require().Len(states, 2)
	s.Equal("a", states[0].SourceID)
	s.Equal(domain.StateIdle, states[0].State)
	s.NotNil(states[0].LastStats)
}

func (s *SchedulerTestSuite) TestOutsideWindowSkipsCycles() {
	w, err := ParseWindow("0 0 29 2 *", time.UTC)
	s.Require().NoError(err)
	cfg := s.cfg
	cfg.Window = w

	s.sources.add("a")
	cancel, done, _ := s.start(cfg)

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	s.Equal(0, s.runner.count("a"))
}

func (s *SchedulerTestSuite) TestPanicAndErrorDoNotStopLoop() {
	s.runner.run = func(_ context.Context, _ registry.Source, call int) error {
		switch call {
		case 1:
			panic("adapter bug")
		case 2:
			return errors.New("fetch failed")
		}
		return nil
	}
	s.sources.add("a")
	cancel, done, sched := s.start(s.cfg)

	s.Eventually(func() bool { return s.runner.count("a") >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	s.Require().Len(sched.States(), 1)
}

func (s *SchedulerTestSuite) TestPicksUpNewSources() {
	s.sources.add("a")
	cancel, done, _ := s.start(s.cfg)

	s.Eventually(func() bool { return s.runner.count("a") >= 1 }, time.Second, 10*time.Millisecond)
	s.sources.add("late")
	s.Eventually(func() bool { return s.runner.count("late") >= 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func (s *SchedulerTestSuite) TestIntervalChangeTakesEffect() {
	s.sources.setInterval("a", time.Hour)
	cancel, done, _ := s.start(s.cfg)

	s.Eventually(func() bool { return s.runner.count("a") == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	s.Equal(1, s.runner.count("a"))

	s.sources.setInterval("a", 20*time.Millisecond)
	s.Eventually(func() bool { return s.runner.count("a") >= 3 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func (s *SchedulerTestSuite) TestShutdownGraceThenCancel() {
	started := make(chan struct{})
	var once sync.Once
	var cycleErr error
	s.runner.run = func(ctx context.Context, _ registry.Source, _ int) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		cycleErr = ctx.Err()
		return ctx.Err()
	}
	s.sources.add("slow")
	cancel, done, sched := s.start(s.cfg)

	<-started
	begin := time.Now()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.FailNow("scheduler did not stop")
	}

	s.GreaterOrEqual(time.Since(begin), s.cfg.ShutdownGrace)
	s.ErrorIs(cycleErr, context.Canceled)
	s.Equal(domain.StateCancelled, sched.States()[0].State)
}

func (s *SchedulerTestSuite) TestShutdownWaitsForQuickCycle() {
	started := make(chan struct{})
	var once sync.Once
	finished := make(chan struct{})
	s.runner.run = func(ctx context.Context, _ registry.Source, call int) error {
		if call > 1 {
			return nil
		}
		once.Do(func() { close(started) })
		time.Sleep(10 * time.Millisecond)
		close(finished)
		return ctx.Err()
	}
	cfg := s.cfg
	cfg.ShutdownGrace = time.Second
	s.sources.add("a")
	cancel, done, _ := s.start(cfg)

	<-started
	cancel()
	<-done

	select {
	case <-finished:
	default:
		s.Fail("cycle was cut short")
	}
}

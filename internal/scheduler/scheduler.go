package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRunning = errors.New("reconciliation already running")
	ErrShuttingDown   = errors.New("scheduler is shutting down")
)

// Runner is the unit of work fired on every tick.
type Runner interface {
	Run(ctx context.Context)
}

type Config struct {
	Spec       string
	Location   *time.Location
	RunOnStart bool
}

// Scheduler fires the runner on a cron spec and guarantees that at most one
// run is in flight. A tick that finds a run in progress is dropped.
type Scheduler struct {
	runner Runner
	cfg    Config
	log    *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron

	// gate orders wg.Add against Wait; once draining, no run starts
	gate     sync.Mutex
	draining bool
	running  atomic.Bool
	wg       sync.WaitGroup
}

var specParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func New(runner Runner, cfg Config, log *zap.Logger) (*Scheduler, error) {
	if cfg.Spec == "" {
		cfg.Spec = "@hourly"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if _, err := specParser.Parse(cfg.Spec); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", cfg.Spec, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{runner: runner, cfg: cfg, log: log.Named("scheduler")}, nil
}

// Start is a no-op when the scheduler is already active.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithParser(specParser), cron.WithLocation(s.cfg.Location))
	if _, err := c.AddFunc(s.cfg.Spec, s.tick); err != nil {
		return fmt.Errorf("schedule reconciliation: %w", err)
	}
	c.Start()
	s.cron = c

	s.log.Info("scheduler started",
		zap.String("spec", s.cfg.Spec),
		zap.String("timezone", s.cfg.Location.String()),
	)

	if s.cfg.RunOnStart {
		s.TryTrigger()
	}
	return nil
}

// Stop prevents future ticks. A run already in flight is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// RunNow runs synchronously on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.runner.Run(ctx)
	return nil
}

// TryTrigger starts a run in the background and reports whether it did.
func (s *Scheduler) TryTrigger() bool {
	if err := s.acquire(); err != nil {
		s.log.Warn("trigger dropped", zap.Error(err))
		return false
	}

	go func() {
		defer s.release()
		s.runner.Run(context.Background())
	}()
	return true
}

// Wait blocks until the in-flight run finishes or ctx expires. It is meant
// for shutdown: afterwards every tick and trigger is refused.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.gate.Lock()
	s.draining = true
	s.gate.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	if err := s.acquire(); err != nil {
		s.log.Warn("tick skipped", zap.Error(err))
		return
	}
	defer s.release()

	s.runner.Run(context.Background())
}

func (s *Scheduler) acquire() error {
	s.gate.Lock()
	defer s.gate.Unlock()

	if s.draining {
		return ErrShuttingDown
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.wg.Add(1)
	return nil
}

func (s *Scheduler) release() {
	defer s.wg.Done()
	if r := recover(); r != nil {
		s.log.Error("reconciliation panicked", zap.Any("panic", r))
	}
	s.running.Store(false)
}

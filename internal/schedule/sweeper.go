package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs SweepDue on a cron cadence. Only one sweep runs at a time;
// if a tick fires while a sweep is still in flight the tick is skipped.
type Sweeper struct {
	cron   *cron.Cron
	store  *Store
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	lastRun time.Time
	lastErr error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a Sweeper over the store. cronExpr uses standard
// five-field syntax, minute resolution.
func NewSweeper(store *Store, cronExpr string) (*Sweeper, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
		store:  store,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(cronExpr, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return s, nil
}

// WithLogger sets the logger for the sweeper.
func (s *Sweeper) WithLogger(logger *slog.Logger) *Sweeper {
	s.logger = logger
	return s
}

// Start begins executing scheduled sweeps.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("sweeper started")
}

// Stop halts the cron loop, cancels any in-flight sweep, and returns a
// context that is done once all work has drained.
func (s *Sweeper) Stop() context.Context {
	s.logger.Info("sweeper stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// Trigger runs a sweep immediately, outside the cron cadence. Returns an
// error if a sweep is already running or the sweeper has stopped.
func (s *Sweeper) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("sweeper is stopped")
	}
	if s.running {
		return fmt.Errorf("sweep already running")
	}
	s.running = true
	s.wg.Add(1)
	go s.runSweep()
	return nil
}

// tick is the cron callback.
func (s *Sweeper) tick() {
	s.mu.Lock()
	if s.stopped || s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()
	s.runSweep()
}

// runSweep executes one sweep. The caller must have set running and called
// wg.Add(1).
func (s *Sweeper) runSweep() {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	attempted, err := s.store.SweepDue(s.ctx, start)

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("sweep failed",
			"attempted", attempted,
			"duration", time.Since(start),
			"error", err)
		return
	}
	if attempted > 0 {
		s.logger.Info("sweep completed",
			"attempted", attempted,
			"duration", time.Since(start))
	}
}

// LastRun reports when the most recent sweep started and its outcome.
func (s *Sweeper) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

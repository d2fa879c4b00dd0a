// Package jobs runs background maintenance for the reservation store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Completer marks elapsed active reservations as completed.
type Completer interface {
	CompleteElapsed(ctx context.Context) (int, error)
}

// ErrAlreadyStarted is returned by Start on a running sweeper.
var ErrAlreadyStarted = errors.New("jobs: sweeper already started")

// Sweeper runs the completion sweep on a cron schedule. Overlapping runs are
// skipped rather than queued.
type Sweeper struct {
	completer Completer
	schedule  cron.Schedule
	expr      string
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// Options configures a Sweeper.
type Options struct {
	// Schedule is a standard cron expression or descriptor such as "@every 5m".
	Schedule string
	// Timeout bounds a single run. Zero means one minute.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewSweeper validates the schedule and returns an idle sweeper.
func NewSweeper(completer Completer, opts Options) (*Sweeper, error) {
	if completer == nil {
		return nil, fmt.Errorf("jobs: completer is required")
	}
	schedule, err := cron.ParseStandard(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("jobs: invalid schedule %q: %w", opts.Schedule, err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		completer: completer,
		schedule:  schedule,
		expr:      opts.Schedule,
		timeout:   timeout,
		logger:    logger.With("job", "reservation_sweeper"),
	}, nil
}

// Start begins running the sweep in the background.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	adapter := cronLogger{logger: s.logger}
	c := cron.New(cron.WithChain(
		cron.Recover(adapter),
		cron.SkipIfStillRunning(adapter),
	))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		_, _ = s.RunOnce(context.Background())
	}))
	c.Start()

	s.cron = c
	s.started = true
	s.logger.Info("sweeper started", "schedule", s.expr)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or for ctx to
// expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.started = false
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.logger.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep synchronously.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	completed, err := s.completer.CompleteElapsed(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep failed", "error", err, "completed", completed)
		return completed, err
	}
	s.logger.DebugContext(ctx, "sweep finished", "completed", completed, "duration_ms", time.Since(started).Milliseconds())
	return completed, nil
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

// Package workers contains the background sweepers that drive invite
// timeouts, reminders, and escalation. All scheduling state lives in the
// database; the sweepers themselves are stateless and safe to run on
// several instances at once.
package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Sweeper runs a sweep function on a fixed interval until the context is
// cancelled. A tick that fires while the previous sweep is still running
// is skipped, never overlapped.
type Sweeper struct {
	name     string
	interval time.Duration
	sweep    func(ctx context.Context) error
	logger   *slog.Logger
	inFlight atomic.Bool
}

func NewSweeper(name string, interval time.Duration, sweep func(ctx context.Context) error, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		name:     name,
		interval: interval,
		sweep:    sweep,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. One sweep failure aborts that tick
// only; the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "sweeper", s.name, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped", "sweeper", s.name)
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("previous sweep still running, skipping tick", "sweeper", s.name)
		return
	}
	defer s.inFlight.Store(false)

	if err := s.sweep(ctx); err != nil {
		s.logger.Error("sweep failed", "sweeper", s.name, "error", err)
	}
}

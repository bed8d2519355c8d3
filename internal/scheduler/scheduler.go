// Package scheduler runs the periodic system-initiated booking transitions.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type bookingCompleter interface {
	CompleteDue(ctx context.Context, now time.Time) (int, error)
}

// Scheduler completes confirmed bookings whose requested date has passed.
type Scheduler struct {
	bookings bookingCompleter
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Scheduler that sweeps every interval.
func New(bookings bookingCompleter, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{bookings: bookings, interval: interval, logger: logger, now: time.Now}
}

// Start sweeps once immediately, then on every tick until ctx is cancelled.
// It always returns nil so it can run under an errgroup next to the server.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("scheduler disabled")
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval.String())
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.bookings.CompleteDue(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to complete due bookings", "error", err)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "completed due bookings", "count", n)
	}
}

package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SessionPurger is the slice of the session store the sweeper needs.
type SessionPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff int64) (int, error)
}

// SessionSweeper periodically deletes verification sessions older than the
// sweep threshold. This bounds storage growth from abandoned sessions; it is
// deliberately looser than the user-facing TTL checked at submit time.
type SessionSweeper struct {
	store     SessionPurger
	interval  time.Duration
	threshold time.Duration
	stop      chan struct{}
}

func NewSessionSweeper(store SessionPurger, interval, threshold time.Duration) *SessionSweeper {
	return &SessionSweeper{
		store:     store,
		interval:  interval,
		threshold: threshold,
		stop:      make(chan struct{}),
	}
}

// Start blocks until the context is cancelled or Stop is called.
// Run it in its own goroutine.
func (s *SessionSweeper) Start(ctx context.Context) {
	slog.Info("session sweeper started", "interval", s.interval, "threshold", s.threshold)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped", "reason", "context cancelled")
			return
		case <-s.stop:
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) Stop() {
	close(s.stop)
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.threshold).Unix()
	purged, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("session sweep failed", "err", err)
		return
	}
	if purged > 0 {
		slog.Info("purged stale verification sessions", "count", purged)
	}
}

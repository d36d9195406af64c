package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/services"
)

// Sweeper periodically reconciles stale call state. It is the only component
// responsible for guaranteeing the active-call index never leaks entries for
// calls that never got a terminal response.
type Sweeper struct {
	log      *slog.Logger
	calls    services.ICallService
	interval time.Duration
}

func New(log *slog.Logger, calls services.ICallService, interval time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		calls:    calls,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled. A failed sweep is logged and retried on
// the next tick; it never crashes the process.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("sweeper - run - started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper - run - stopped")
			return
		case <-ticker.C:
			if err := s.calls.SweepStaleCalls(ctx); err != nil {
				s.log.ErrorContext(ctx, "sweeper - run - sweep failed", "err", err)
			}
		}
	}
}

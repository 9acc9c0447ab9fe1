package watch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler fires one sweep per interval. Sweeps are serialized explicitly:
// a tick arriving while the previous sweep is still running is skipped and
// logged, never run concurrently. Stop prevents future sweeps but does not
// abort one in flight.
type Scheduler struct {
	interval time.Duration
	sweep    func(context.Context)
	log      *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	sweeping atomic.Bool
}

func NewScheduler(interval time.Duration, sweep func(context.Context), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{interval: interval, sweep: sweep, log: logger}
}

// Start launches the tick loop. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.log.Info("scheduler started", "interval", s.interval)
	go s.run(ctx)
}

// Stop ends the tick loop. Idempotent. An in-flight sweep completes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.log.Info("scheduler stopped")
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	if !s.sweeping.CompareAndSwap(false, true) {
		s.log.Warn("previous sweep still running, skipping tick")
		return
	}
	defer s.sweeping.Store(false)

	// Sweeps run on a background context: stopping the scheduler must not
	// cancel fetches already in flight.
	s.sweep(context.Background())
}

package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler drives the coordinator's periodic work: the overdue sweep every
// interval, and the midnight rollover once per day (the rollover itself is
// idempotent, so calling it every tick is safe).
type Scheduler struct {
	mu       sync.RWMutex
	coord    *Coordinator
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a scheduler with the given tick interval. Zero or
// negative intervals fall back to one minute.
func NewScheduler(coord *Coordinator, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		coord:    coord,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	if err := s.coord.RunMidnightRollover(); err != nil {
		s.logger.Error("midnight rollover", "error", err)
	}
	if err := s.coord.RunOverdueSweep(); err != nil {
		s.logger.Error("overdue sweep", "error", err)
	}
}

package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fixhub/realtime-backend/internal/core/domain"
)

// Scheduler is the single periodic background task: on every tick it
// refreshes the metrics snapshot and broadcasts one projection per populated
// role-scope. It is a two-state machine (idle/running a tick) with a busy
// guard: a tick that comes due while the previous one is still running is
// skipped entirely, never queued and never run concurrently.
type Scheduler struct {
	interval   time.Duration
	aggregator *Aggregator
	router     *Router
	publisher  *Publisher
	logger     *slog.Logger

	busy     atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a stopped scheduler. Call Start to begin ticking.
func NewScheduler(interval time.Duration, aggregator *Aggregator, router *Router, publisher *Publisher, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		interval:   interval,
		aggregator: aggregator,
		router:     router,
		publisher:  publisher,
		logger:     logger.With("component", "scheduler"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the tick loop in its own goroutine. Starting twice is a
// no-op.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)

	for {
		select {
		case <-s.stop:
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if !s.busy.CompareAndSwap(false, true) {
				s.logger.Warn("previous tick still running, skipping")
				continue
			}
			go s.tick()
		}
	}
}

// tick refreshes the snapshot and emits one projection per role-scope that
// currently has members. Any failure is logged and swallowed; the next tick
// retries independently and the scheduler never stops because of it.
func (s *Scheduler) tick() {
	defer s.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	snap, err := s.aggregator.Refresh(ctx)
	if err != nil {
		// Previous snapshot, if any, stays in place.
		s.logger.Error("metrics refresh failed", "error", err)
		return
	}

	for _, role := range s.router.RolesWithMembers() {
		projection := s.aggregator.Project(snap, role)
		s.publisher.PublishToRole(role, domain.EventMetricsUpdate, projection)
	}
}

// Stop halts the ticker. It is idempotent: the first call wins and any later
// call is a no-op. A tick already in flight finishes on its own.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started.Load() {
		<-s.done
	}
}

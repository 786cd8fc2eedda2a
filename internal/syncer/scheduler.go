package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SyncRunner is the sync operation the scheduler drives.
type SyncRunner interface {
	SyncAll(ctx context.Context) error
}

// Scheduler runs SyncAll on a fixed interval. A pass that outlives the
// interval is never overlapped; the due tick is skipped instead.
// Trigger squeezes in a manual pass between ticks.
type Scheduler struct {
	runner   SyncRunner
	interval time.Duration
	logger   *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	trigger chan struct{}
	syncing atomic.Bool
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func NewScheduler(runner SyncRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the scheduler loop. The first pass runs immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Sync scheduler started",
		zap.Duration("interval", s.interval),
	)

	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("Sync scheduler stopped")
}

// Trigger requests a pass outside the schedule. Returns false when a
// trigger is already queued.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Syncing reports whether a pass is currently in flight.
func (s *Scheduler) Syncing() bool {
	return s.syncing.Load()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		case <-s.trigger:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	if !s.syncing.CompareAndSwap(false, true) {
		s.logger.Warn("Previous sync pass still running, skipping this one")
		return
	}
	defer s.syncing.Store(false)

	start := time.Now()
	if err := s.runner.SyncAll(s.ctx); err != nil {
		s.logger.Error("Sync pass failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Sync pass finished",
		zap.Duration("elapsed", time.Since(start)),
	)
}

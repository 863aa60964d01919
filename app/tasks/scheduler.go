package tasks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/rss-herald/app/metrics"
)

// Scheduler runs check cycles on a timer while it is running. It can be
// started and stopped any number of times until Close.
type Scheduler struct {
	runner          *Runner
	defaultInterval int
	tick            time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
}

// NewScheduler waits interval x tick between cycles, where interval is the
// check_interval setting re-read after every cycle.
func NewScheduler(runner *Runner, defaultInterval int, tick time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:          runner,
		defaultInterval: defaultInterval,
		tick:            tick,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start reports whether this call started the loop.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() || s.ctx.Err() != nil {
		return false
	}

	stop := make(chan struct{})
	s.stopCh = stop
	s.running.Store(true)
	metrics.MonitorRunning.Set(1)

	s.wg.Add(1)
	go s.loop(stop)

	slog.Info("Monitor started")
	return true
}

// Stop reports whether this call stopped the loop. A cycle already in
// progress finishes, but no new one begins.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	close(s.stopCh)
	s.stopCh = nil
	s.running.Store(false)
	metrics.MonitorRunning.Set(0)

	slog.Info("Monitor stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Close stops the loop, cancels in-flight work and waits for it to exit.
func (s *Scheduler) Close() {
	s.Stop()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		interval := s.runCycle()

		select {
		case <-stop:
			return
		default:
		}

		wait := time.Duration(interval) * s.tick
		slog.Debug("Waiting for next check", "interval", interval, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runCycle returns the interval to wait before the next cycle.
func (s *Scheduler) runCycle() (interval int) {
	interval = s.defaultInterval

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Check cycle panicked", "panic", r)
		}
	}()

	if _, err := s.runner.CheckFeeds(s.ctx); err != nil {
		slog.Error("Check cycle failed", "error", err)
	}

	settings, err := s.runner.Settings()
	if err != nil {
		slog.Warn("Failed to reload check interval, using default", "error", err, "default", s.defaultInterval)
		return interval
	}
	if settings.CheckInterval >= 1 {
		interval = settings.CheckInterval
	}

	return interval
}

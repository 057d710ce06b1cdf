package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/barvenue/tabsync/internal/netmon"
)

// SchedulerConfig holds scheduler timing configuration.
type SchedulerConfig struct {
	// StabilizationDelay is how long to wait after an offline→online
	// transition before starting a pass, so a flapping connection settles.
	StabilizationDelay time.Duration

	// SyncInterval re-runs a pass periodically while online to retry
	// entries that failed earlier. Zero disables periodic passes.
	SyncInterval time.Duration
}

// DefaultSchedulerConfig returns default scheduler timings.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		StabilizationDelay: 2 * time.Second,
		SyncInterval:       5 * time.Minute,
	}
}

// Scheduler triggers sync passes automatically: once shortly after every
// reconnection, and optionally on a fixed interval while online. Passes are
// skipped while another is already in flight.
type Scheduler struct {
	orch    *Orchestrator
	monitor *netmon.Monitor
	config  SchedulerConfig

	mu          gosync.Mutex
	running     bool
	unsubscribe func()
	stopCh      chan struct{}
	wg          gosync.WaitGroup
	log         zerolog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(orch *Orchestrator, monitor *netmon.Monitor, config SchedulerConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		orch:    orch,
		monitor: monitor,
		config:  config,
		stopCh:  make(chan struct{}),
		log:     log,
	}
}

// Start subscribes to connectivity transitions and begins the periodic
// loop. No-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true

	s.unsubscribe = s.monitor.Subscribe(
		func() { s.onOnline(ctx) },
		nil,
	)
	s.mu.Unlock()

	if s.config.SyncInterval > 0 {
		s.wg.Add(1)
		go s.periodicLoop(ctx)
	}

	s.log.Info().Msg("sync scheduler started")
}

// Stop deregisters from the monitor and waits for in-flight goroutines.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	close(s.stopCh)
	s.wg.Wait()

	s.log.Info().Msg("sync scheduler stopped")
}

// onOnline waits out the stabilization delay, then runs a pass if the
// connection held and no pass is already running.
func (s *Scheduler) onOnline(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(s.config.StabilizationDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
		}

		s.runPass(ctx, "reconnect")
	}()
}

func (s *Scheduler) periodicLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runPass(ctx, "periodic")
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context, trigger string) {
	if !s.monitor.Online() || s.orch.Syncing() {
		return
	}

	result, err := s.orch.Sync(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("trigger", trigger).Msg("sync pass failed")
		return
	}
	s.log.Debug().
		Str("trigger", trigger).
		Str("message", result.Message).
		Msg("scheduled sync pass finished")
}

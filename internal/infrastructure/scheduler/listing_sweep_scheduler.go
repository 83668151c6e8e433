package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	applisting "github.com/propfolio/backend/internal/application/listing"
)

// ErrSchedulerNotRunning is returned when a manual trigger is requested on a
// stopped scheduler.
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// ListingSweepScheduler runs the listing time sweep on a fixed interval.
// The sweep itself is idempotent, so overlapping or repeated runs are safe.
type ListingSweepScheduler struct {
	service   *applisting.SweepService
	logger    *zap.Logger
	config    ListingSweepSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// ListingSweepSchedulerConfig holds configuration for the listing sweep scheduler
type ListingSweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// CheckInterval is how often the sweep runs
	CheckInterval time.Duration

	// SweepTimeout is the maximum time for a single sweep pass
	SweepTimeout time.Duration
}

// DefaultListingSweepSchedulerConfig returns default configuration
func DefaultListingSweepSchedulerConfig() ListingSweepSchedulerConfig {
	return ListingSweepSchedulerConfig{
		Enabled:       true,
		CheckInterval: 15 * time.Minute,
		SweepTimeout:  5 * time.Minute,
	}
}

// NewListingSweepScheduler creates a new listing sweep scheduler
func NewListingSweepScheduler(
	service *applisting.SweepService,
	logger *zap.Logger,
	config ListingSweepSchedulerConfig,
) *ListingSweepScheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 15 * time.Minute
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 5 * time.Minute
	}
	return &ListingSweepScheduler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the sweep loop
func (s *ListingSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Listing sweep scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Listing sweep scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *ListingSweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Listing sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Listing sweep scheduler stop timed out")
		return ctx.Err()
	}
}

// run executes the sweep on every tick until the context is cancelled
func (s *ListingSweepScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// One pass right away so a restart does not wait a full interval to
	// catch listings that came due while the process was down.
	s.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Listing sweep loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs a single sweep pass with a timeout
func (s *ListingSweepScheduler) executeSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	startTime := time.Now()
	result, err := s.service.ProcessTimeBasedTransitions(sweepCtx, time.Now().UTC())
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Listing sweep failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	if result.Activated > 0 || result.Expired > 0 {
		s.logger.Info("Listing sweep completed",
			zap.Duration("duration", duration),
			zap.Int("activated", result.Activated),
			zap.Int("expired", result.Expired),
		)
	}
}

// TriggerImmediateSweep triggers a sweep pass outside the regular schedule
func (s *ListingSweepScheduler) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate listing sweep")

	go func() {
		defer s.wg.Done()
		s.executeSweep(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *ListingSweepScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

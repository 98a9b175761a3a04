// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a five-field cron expression or a
// descriptor such as "@daily" or "@every 1h".
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

// Job is the unit of work triggered on every tick.
type Job func(ctx context.Context) error

// RetentionScheduler triggers audit retention cleanup on a cron schedule.
type RetentionScheduler struct {
	schedule string
	job      Job
	logger   *slog.Logger
	timeout  time.Duration

	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

// NewRetentionScheduler creates a scheduler that runs job on schedule.
func NewRetentionScheduler(schedule string, job Job, logger *slog.Logger) *RetentionScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionScheduler{
		schedule: schedule,
		job:      job,
		logger:   logger.With(slog.String("component", "scheduler")),
		timeout:  time.Minute,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the job and begins the cron loop. The scheduler stops when
// ctx is canceled or Stop is called.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		slog.String("schedule", s.schedule),
		slog.Time("next_run", s.cron.Entry(entryID).Next),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.running = false

	s.logger.Info("retention scheduler stopped")
}

// Wait blocks until Stop has completed after the start context was canceled.
func (s *RetentionScheduler) Wait() {
	s.wg.Wait()
}

// RunNow triggers the job immediately and synchronously.
func (s *RetentionScheduler) RunNow() {
	s.run()
}

// IsRunning returns whether the scheduler is active.
func (s *RetentionScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// NextRun returns when the next job will fire, or nil when stopped.
func (s *RetentionScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *RetentionScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("retention job failed", slog.Any("error", err))
		return
	}
	s.logger.Debug("retention job finished", slog.Duration("elapsed", time.Since(start)))
}

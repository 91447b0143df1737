package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Scheduler runs a job on a fixed interval until stopped.
type Scheduler struct {
	name     string
	job      Job
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	runs     int64
	failures int64
	lastRun  time.Time
	lastErr  error
}

// Config holds scheduler configuration.
type Config struct {
	Name     string
	Interval time.Duration
	Logger   *slog.Logger
}

// New creates a scheduler for job. A zero interval means one minute.
func New(job Job, cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	name := cfg.Name
	if name == "" {
		name = "job"
	}

	return &Scheduler{
		name:     name,
		job:      job,
		interval: interval,
		logger:   logger.With("job", name),
	}
}

// Start begins the scheduler loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(ctx, s.stopCh, s.doneCh)
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-stop:
			return
		case <-ticker.C:
			_ = s.RunNow(ctx)
		}
	}
}

// RunNow runs the job immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	start := time.Now()
	err := s.job(ctx)

	s.mu.Lock()
	s.runs++
	s.lastRun = start
	s.lastErr = err
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduled job failed", "error", err)
	} else {
		s.logger.Debug("scheduled job completed", "duration", time.Since(start))
	}
	return err
}

// Stats is a snapshot of scheduler activity.
type Stats struct {
	Running   bool      `json:"running"`
	Interval  string    `json:"interval"`
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Running:  s.running,
		Interval: s.interval.String(),
		Runs:     s.runs,
		Failures: s.failures,
		LastRun:  s.lastRun,
	}
	if s.lastErr != nil {
		stats.LastError = s.lastErr.Error()
	}
	return stats
}

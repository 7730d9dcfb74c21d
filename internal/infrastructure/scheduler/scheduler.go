// Package scheduler runs periodic read-only jobs over the financing data.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/infrastructure/config"
	"github.com/realestate/backend/internal/infrastructure/telemetry"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron expressions. Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	enabled bool

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New creates a scheduler from the scheduler settings
func New(cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		logger:  logger,
		timeout: timeout,
		enabled: cfg.Enabled,
		ctx:     context.Background(),
	}
}

// Register schedules job on spec, a standard five-field cron expression
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, job.Name(), err)
	}
	s.logger.Info("Scheduled job registered", zap.String("job", job.Name()), zap.String("schedule", spec))
	return nil
}

// RunNow executes job once outside its schedule
func (s *Scheduler) RunNow(job Job) {
	s.execute(job)
}

func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	var err error
	telemetry.WithProfilingLabels(ctx, map[string]string{"job": job.Name()}, func(ctx context.Context) {
		err = job.Run(ctx)
	})
	if err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", job.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Scheduled job completed",
		zap.String("job", job.Name()),
		zap.Duration("duration", time.Since(start)),
	)
}

// Start begins firing registered jobs. It is a no-op when disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if !s.enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Stop cancels in-flight jobs and waits for them until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}

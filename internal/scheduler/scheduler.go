// Package scheduler runs the service's background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/josh-kwaku/backoffice/internal/logging"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// New builds a scheduler whose specs include a seconds field. Overlapping
// runs of the same job are skipped and panics are recovered.
func New(logger *slog.Logger, jobTimeout time.Duration) *Scheduler {
	log := logging.Component(logger, "scheduler")
	adapter := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		timeout: jobTimeout,
	}
}

// Add registers job under schedule. An empty schedule leaves the job disabled.
func (s *Scheduler) Add(schedule string, job Job) error {
	if schedule == "" {
		s.log.Info("job disabled", "job", job.Name())
		return nil
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("Add %s: %w", job.Name(), err)
	}
	s.log.Info("job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	log := s.log.With("job", job.Name())
	ctx = logging.WithLogger(ctx, log)

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Error("job failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	log.Debug("job completed", "duration_ms", time.Since(start).Milliseconds())
}

// RunNow executes job outside its schedule, synchronously.
func (s *Scheduler) RunNow(job Job) {
	s.run(job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

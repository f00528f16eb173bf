// Package jobs runs the periodic maintenance tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"freeflow/pkg/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"

	shutdownTimeout = 30 * time.Second
)

// Job is a named task run on a cron spec.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// cronLogger adapts zap to the cron logger interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *zap.Logger
}

// NewScheduler returns a scheduler whose jobs run with ctx as parent.
func NewScheduler(ctx context.Context, logger *zap.Logger) *Scheduler {
	logger = logger.Named("cron")
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger}), cron.SkipIfStillRunning(cronLogger{logger: logger})),
		),
		ctx:    ctx,
		logger: logger,
	}
}

func (s *Scheduler) Add(job Job) error {
	if _, err := s.cron.AddFunc(job.Spec, func() { s.runJob(job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	s.logger.Info("job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

// RunNow runs a job once in the caller's goroutine.
func (s *Scheduler) RunNow(job Job) error {
	return s.runJob(job)
}

func (s *Scheduler) runJob(job Job) error {
	ctx := s.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		metrics.JobRunsCounter.WithLabelValues(job.Name, outcomeFailure).Inc()
		s.logger.Error("job failed", zap.String("job", job.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return err
	}
	metrics.JobRunsCounter.WithLabelValues(job.Name, outcomeSuccess).Inc()
	s.logger.Debug("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown stops scheduling and waits for running jobs, at most 30s.
func (s *Scheduler) Shutdown() {
	ctx, cancel := context.WithTimeout(s.cron.Stop(), shutdownTimeout)
	defer cancel()
	<-ctx.Done()
}

// Package scheduler runs periodic housekeeping jobs such as exporting
// connection pool statistics.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner whose lifetime follows a context.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   int
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a scheduler. Jobs that panic are recovered and logged, and a
// job still running when its next tick arrives is skipped.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{logger: s.logger}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))
	return s
}

// Every registers job to run at the given interval spec, for example "@every 15s".
func (s *Scheduler) Every(spec, name string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.jobs++
	s.logger.Debug("job scheduled", "job", name, "spec", spec)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return s.jobs
}

// Start runs the registered jobs until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

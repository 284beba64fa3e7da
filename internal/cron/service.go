package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bloodlink-backend/pkg/logger"
	"github.com/angelmondragon/bloodlink-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const defaultInterval = time.Hour

// cycleLock keeps a single worker replica running jobs at a time.
type cycleLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     cycleLock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs the registered jobs under the cycle lock on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     cycleLock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

// CycleReport summarises one RunOnce call.
type CycleReport struct {
	Skipped   bool
	Succeeded []string
	Failed    []string
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Lock == nil:
		return nil, fmt.Errorf("lock required")
	case params.Registry == nil:
		return nil, fmt.Errorf("job registry required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run sweeps once immediately and then on every tick until ctx ends. Job
// failures are logged and never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "cron cycle finished with failures", err)
	}
}

// RunOnce runs every job once under the cycle lock. The returned error
// combines the failures of individual jobs; a held lock is not an error.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	var report CycleReport
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		report.Skipped = true
		s.metrics.IncSkipped()
		s.logg.Info(ctx, "another cron worker holds the lock; skipping cycle")
		return report, nil
	}
	defer func() {
		// release even when the cycle was interrupted by shutdown
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	var errs error
	for _, job := range s.registry.Jobs() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = multierr.Append(errs, ctxErr)
			break
		}
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			report.Failed = append(report.Failed, job.Name())
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), jobErr))
			continue
		}
		report.Succeeded = append(report.Succeeded, job.Name())
	}

	summaryCtx := s.logg.WithFields(ctx, map[string]any{
		"jobs_succeeded": len(report.Succeeded),
		"jobs_failed":    report.Failed,
	})
	s.logg.Info(summaryCtx, "cron cycle complete")
	return report, errs
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	s.logg.Info(jobCtx, "job start")

	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}

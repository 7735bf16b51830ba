package diagnostics

import (
	"context"
	"time"

	"github.com/garnizeh/trailblazers/internal/jobs"
)

// Scheduler persists a job to run at a given time.
type Scheduler interface {
	Schedule(ctx context.Context, typ string, payload any, at time.Time, priority int, maxAttempts int) (int64, error)
}

const jobPriority = 50

// JobHandler runs the checklist and schedules the next run interval later.
func (s *Service) JobHandler(sched Scheduler, interval time.Duration) jobs.Handler {
	return func(ctx context.Context, j *jobs.Job) error {
		if _, err := s.Run(ctx); err != nil {
			return err
		}
		if _, err := sched.Schedule(ctx, jobs.TypeDiagnosticsRun, struct{}{}, s.now().Add(interval), jobPriority, 3); err != nil {
			s.logger.Error("schedule next diagnostics run", "err", err)
		}
		return nil
	}
}

// Pending reports whether a diagnostics run is already queued.
type Pending interface {
	HasPending(ctx context.Context, typ string) (bool, error)
}

// EnsureScheduled queues a first run unless one is already pending, so
// restarts do not multiply the daily job.
func EnsureScheduled(ctx context.Context, p Pending, sched Scheduler) error {
	ok, err := p.HasPending(ctx, jobs.TypeDiagnosticsRun)
	if err != nil || ok {
		return err
	}
	_, err = sched.Schedule(ctx, jobs.TypeDiagnosticsRun, struct{}{}, time.Now(), jobPriority, 3)
	return err
}

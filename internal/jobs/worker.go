package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type WorkerPool struct {
	repo         *Repository
	handlers     map[string]Handler
	logger       *slog.Logger
	workerCount  int
	pollInterval time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewWorkerPool(repo *Repository, handlers map[string]Handler, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &WorkerPool{
		repo:         repo,
		handlers:     handlers,
		logger:       logger,
		workerCount:  workerCount,
		pollInterval: 500 * time.Millisecond,
		stop:         make(chan struct{}),
	}
}

// SetPollInterval changes how long an idle worker waits before polling again.
// It must be called before Start.
func (p *WorkerPool) SetPollInterval(d time.Duration) {
	if d > 0 {
		p.pollInterval = d
	}
}

// Register adds or replaces the handler for typ. It must be called before Start.
func (p *WorkerPool) Register(typ string, h Handler) {
	p.handlers[typ] = h
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
		}

		job, err := p.repo.Claim(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("fetch job", "err", err)
			}
			if !p.wait(ctx, time.Second) {
				return
			}
			continue
		}
		if job == nil {
			if !p.wait(ctx, p.pollInterval) {
				return
			}
			continue
		}
		p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *Job) {
	// status writes must land even when shutdown cancelled ctx mid-run
	wctx := context.WithoutCancel(ctx)

	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler"
		if err := p.repo.MoveToDeadLetter(wctx, job); err != nil {
			p.logger.Error("move to dead letter", "job_id", job.ID, "err", err)
		}
		return
	}

	err := p.run(ctx, h, job)
	if err == nil {
		job.Status = StatusDone
		job.LastError = ""
		if upErr := p.repo.UpdateJob(wctx, job); upErr != nil {
			p.logger.Error("mark job done", "job_id", job.ID, "err", upErr)
		}
		return
	}

	if ctx.Err() != nil {
		// interrupted by shutdown; runs again on the next start without using an attempt
		job.Status = StatusQueued
		job.LastError = err.Error()
		if upErr := p.repo.UpdateJob(wctx, job); upErr != nil {
			p.logger.Error("requeue interrupted job", "job_id", job.ID, "err", upErr)
		}
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if IsPermanent(err) || job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		p.logger.Warn("job failed", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts, "err", err)
		if mvErr := p.repo.MoveToDeadLetter(wctx, job); mvErr != nil {
			p.logger.Error("move to dead letter", "job_id", job.ID, "err", mvErr)
		}
		return
	}

	t := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &t
	job.Status = StatusRetry
	if upErr := p.repo.UpdateJob(wctx, job); upErr != nil {
		p.logger.Error("update job for retry", "job_id", job.ID, "err", upErr)
	}
}

func (p *WorkerPool) run(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	return p.Schedule(ctx, typ, payload, time.Now(), priority, maxAttempts)
}

// Schedule persists a job that becomes runnable at the given time.
func (p *WorkerPool) Schedule(ctx context.Context, typ string, payload any, at time.Time, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	j := &Job{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: at}
	return p.repo.Enqueue(ctx, j)
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

type (
	// Handler executes one fired job.
	Handler func(ctx context.Context, job Job) error

	// Executor routes fired jobs to handlers by event class.
	Executor struct {
		mu       sync.RWMutex
		handlers map[string]Handler
	}

	RunnerOptions struct {
		Interval time.Duration
		Workers  int
		// Rate caps job starts per second across workers; 0 means unlimited.
		Rate  float64
		Batch int64
		Clock func() time.Time
	}

	// Runner polls a Scheduler and hands due jobs to a worker pool.
	Runner struct {
		sched    *Scheduler
		exec     *Executor
		interval time.Duration
		workers  int
		batch    int64
		limiter  *rate.Limiter
		now      func() time.Time
		wake     chan struct{}
	}
)

func NewExecutor() *Executor {
	return &Executor{handlers: make(map[string]Handler)}
}

// Register binds an event class to h.
func (e *Executor) Register(eventClass string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventClass] = h
}

// Execute runs job. An unknown event class is an error, never a silent drop.
func (e *Executor) Execute(ctx context.Context, job Job) error {
	e.mu.RLock()
	h, ok := e.handlers[job.JobState.EventClass]
	e.mu.RUnlock()
	if !ok {
		return errx.Ef(errx.KindScheduleFailure, "no executor registered for event class %q", job.JobState.EventClass)
	}
	return h(ctx, job)
}

func NewRunner(s *Scheduler, exec *Executor, opts RunnerOptions) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Batch <= 0 {
		opts.Batch = 100
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), opts.Workers)
	}
	return &Runner{
		sched:    s,
		exec:     exec,
		interval: opts.Interval,
		workers:  opts.Workers,
		batch:    opts.Batch,
		limiter:  limiter,
		now:      opts.Clock,
		wake:     make(chan struct{}, 1),
	}
}

// Wake triggers an immediate poll, used after a job was persisted.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	logx.Info().Str("collection", r.sched.Collection()).Dur("interval", r.interval).Int("workers", r.workers).Msg("scheduler runner started")
	for {
		if _, err := r.RunDue(ctx); err != nil && ctx.Err() == nil {
			logx.Error().Err(err).Str("collection", r.sched.Collection()).Msg("scheduler poll failed")
		}
		select {
		case <-ctx.Done():
			logx.Info().Str("collection", r.sched.Collection()).Msg("scheduler runner stopped")
			return nil
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// RunDue executes every job due now and returns how many were fired.
// Each job is rescheduled (cron) or removed (date) before it runs so a slow
// handler is not picked up twice.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	now := r.now()
	jobs, err := r.sched.Due(ctx, now, r.batch)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	fired := 0
	for _, job := range jobs {
		if err := r.sched.Reschedule(ctx, job, now); err != nil {
			logx.Error().Err(err).Str("event_id", job.ID).Msg("failed to advance job; skipping")
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			break
		}
		fired++
		job := job
		g.Go(func() error {
			if err := r.exec.Execute(gctx, job); err != nil {
				logx.Error().Err(err).
					Str("event_id", job.ID).
					Str("event_class", job.JobState.EventClass).
					Msg("scheduled job failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fired, fmt.Errorf("run due jobs: %w", err)
	}
	return fired, nil
}

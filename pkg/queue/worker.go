package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/brewloop/subswap-backend/pkg/errors"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/brewloop/subswap-backend/pkg/metrics"
)

const defaultPollInterval = 250 * time.Millisecond

// Handler processes one reserved job.
type Handler func(ctx context.Context, job Job) error

// Hooks receive job lifecycle notifications. All hooks are optional.
type Hooks struct {
	// OnCompleted fires after a job is acked.
	OnCompleted func(ctx context.Context, job Job)
	// OnFailed fires after every failed attempt. permanent is true exactly
	// once per job, on the attempt that exhausts its budget.
	OnFailed func(ctx context.Context, job Job, jobErr error, permanent bool)
}

// WorkerParams configure a worker pool.
type WorkerParams struct {
	Logger       *logger.Logger
	Queue        *Queue
	Handler      Handler
	Metrics      *metrics.JobMetrics
	Hooks        Hooks
	Concurrency  int
	PollInterval time.Duration
}

// Worker runs a fixed pool of goroutines draining one queue, plus
// housekeeping loops that promote due retries and reap stalled leases.
type Worker struct {
	logg         *logger.Logger
	queue        *Queue
	handler      Handler
	metrics      *metrics.JobMetrics
	hooks        Hooks
	concurrency  int
	pollInterval time.Duration
}

// NewWorker builds a worker pool.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("queue required")
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	pollInterval := params.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Worker{
		logg:         params.Logger,
		queue:        params.Queue,
		handler:      params.Handler,
		metrics:      params.Metrics,
		hooks:        params.Hooks,
		concurrency:  concurrency,
		pollInterval: pollInterval,
	}, nil
}

// Run processes jobs until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = w.logg.WithField(ctx, "queue", w.queue.Name())
	w.logg.Info(ctx, "worker starting")

	var wg sync.WaitGroup
	wg.Add(w.concurrency + 2)
	for i := 0; i < w.concurrency; i++ {
		go func() {
			defer wg.Done()
			w.consumeLoop(ctx)
		}()
	}
	go func() {
		defer wg.Done()
		w.promoteLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		w.reapLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	w.logg.Info(ctx, "worker stopped")
	return ctx.Err()
}

func (w *Worker) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Reserve(ctx)
		if err != nil {
			w.logg.Error(ctx, "reserving job failed", err)
			w.sleep(ctx, w.pollInterval)
			continue
		}
		if job == nil {
			w.sleep(ctx, w.pollInterval)
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	jctx := w.logg.WithJobID(ctx, job.ID)
	jctx = w.logg.WithField(jctx, "attempt", job.AttemptsMade)

	handlerCtx, cancel := context.WithTimeout(jctx, w.queue.LockDuration())
	start := time.Now()
	err := w.handler(handlerCtx, *job)
	cancel()
	w.metrics.ObserveDuration(w.queue.Name(), time.Since(start))

	if err == nil {
		if ackErr := w.queue.Ack(jctx, job); ackErr != nil {
			w.logg.Error(jctx, "acking job failed", ackErr)
		}
		w.metrics.IncSuccess(w.queue.Name())
		if w.hooks.OnCompleted != nil {
			w.hooks.OnCompleted(jctx, *job)
		}
		return
	}

	permanent, failErr := w.queue.Fail(jctx, job, !pkgerrors.Retryable(err))
	if failErr != nil {
		w.logg.Error(jctx, "recording job failure failed", failErr)
	}
	if permanent {
		w.logg.Error(jctx, "job failed permanently", err)
		w.metrics.IncFailure(w.queue.Name())
	} else {
		w.logg.Warn(w.logg.WithField(jctx, "error", err.Error()), "job attempt failed; retry scheduled")
		w.metrics.IncRetried(w.queue.Name())
	}
	if w.hooks.OnFailed != nil {
		w.hooks.OnFailed(jctx, *job, err, permanent)
	}
}

func (w *Worker) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.queue.PromoteDue(ctx); err != nil {
				w.logg.Error(ctx, "promoting delayed jobs failed", err)
			}
		}
	}
}

func (w *Worker) reapLoop(ctx context.Context) {
	interval := w.queue.LockDuration() / 2
	if interval <= 0 {
		interval = w.pollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped, err := w.queue.ReapStalled(ctx)
			if err != nil {
				w.logg.Error(ctx, "reaping stalled jobs failed", err)
				continue
			}
			if reaped > 0 {
				w.logg.Warn(ctx, fmt.Sprintf("requeued %d stalled jobs", reaped))
			}
		}
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

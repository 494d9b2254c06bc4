package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"pearl/internal/job"
	"pearl/internal/logging"
	"pearl/internal/observability"
)

// Runner is the per-job background work the orchestrator schedules; the
// cognitive loop engine satisfies it.
type Runner interface {
	Run(ctx context.Context, id string)
}

// Orchestrator binds the job registry and the cognitive loop into
// submit/poll semantics. Exactly one background goroutine drives a job, and
// no goroutine outlives its job's terminal state.
type Orchestrator struct {
	registry *job.Registry
	runner   Runner
	metrics  *observability.Metrics
	logger   logging.Logger

	mu      sync.Mutex
	active  map[string]*jobHandle
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// jobHandle tracks one job's background work so it can be awaited or
// cancelled without fire-and-forget semantics.
type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an orchestrator.
func New(registry *job.Registry, runner Runner, metrics *observability.Metrics, logger logging.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		registry: registry,
		runner:   runner,
		metrics:  metrics,
		logger:   logging.OrNop(logger),
		active:   make(map[string]*jobHandle),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Submit validates the request, creates the job, and launches its loop.
// It returns the job id immediately without waiting for any cycle.
func (o *Orchestrator) Submit(goal string, maxIterations int) (string, error) {
	id, err := o.registry.Create(goal, maxIterations)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.baseCtx.Err() != nil {
		// Shutdown has begun; fail the record rather than orphan it.
		_ = o.registry.Finish(id, job.StatusFailed, "orchestrator shutting down")
		return "", fmt.Errorf("orchestrator is shutting down")
	}

	jobCtx, jobCancel := context.WithCancel(o.baseCtx)
	handle := &jobHandle{cancel: jobCancel, done: make(chan struct{})}
	o.active[id] = handle

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(handle.done)
		defer jobCancel()
		defer func() {
			o.mu.Lock()
			delete(o.active, id)
			o.mu.Unlock()
		}()

		o.runner.Run(jobCtx, id)
		o.observeOutcome(id)
	}()

	o.metrics.JobSubmitted()
	o.logger.Info("Job %s submitted (max_iterations=%d)", id, maxIterations)
	return id, nil
}

// Status returns the job's current snapshot without blocking its loop.
func (o *Orchestrator) Status(id string) (job.View, error) {
	return o.registry.Snapshot(id)
}

// Wait blocks until the job's background work has exited. Jobs that have
// already finished return immediately.
func (o *Orchestrator) Wait(id string) {
	o.mu.Lock()
	handle, ok := o.active[id]
	o.mu.Unlock()
	if !ok {
		return
	}
	<-handle.done
}

// Cancel requests cooperative cancellation of one job's loop. The loop
// observes it at its next phase boundary, never mid-write.
func (o *Orchestrator) Cancel(id string) {
	o.mu.Lock()
	handle, ok := o.active[id]
	o.mu.Unlock()
	if ok {
		handle.cancel()
	}
}

// Shutdown cancels all running jobs and waits for their goroutines, bounded
// by ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown wait: %w", ctx.Err())
	}
}

// observeOutcome records the terminal state in metrics after a loop exits.
func (o *Orchestrator) observeOutcome(id string) {
	view, err := o.registry.Snapshot(id)
	if err != nil {
		return
	}
	o.metrics.JobFinished(string(view.State))
	o.metrics.CyclesObserved(len(view.Cycles))
}

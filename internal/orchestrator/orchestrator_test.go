package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pearl/internal/job"
)

// fakeRunner drives the registry through a scripted lifecycle.
type fakeRunner struct {
	registry *job.Registry
	mu       sync.Mutex
	runs     map[string]int
	cycleGap time.Duration
	cycles   int
}

func newFakeRunner(registry *job.Registry, cycles int, gap time.Duration) *fakeRunner {
	return &fakeRunner{registry: registry, runs: make(map[string]int), cycles: cycles, cycleGap: gap}
}

func (r *fakeRunner) Run(ctx context.Context, id string) {
	r.mu.Lock()
	r.runs[id]++
	r.mu.Unlock()

	if err := r.registry.Begin(id); err != nil {
		_ = r.registry.Finish(id, job.StatusFailed, err.Error())
		return
	}
	for i := 1; i <= r.cycles; i++ {
		if ctx.Err() != nil {
			_ = r.registry.Finish(id, job.StatusFailed, "job cancelled")
			return
		}
		if r.cycleGap > 0 {
			time.Sleep(r.cycleGap)
		}
		_ = r.registry.AppendCycle(id, job.Cycle{
			Index:   i,
			Actions: []job.Action{{Tool: "reason", Input: "x"}},
			Results: []job.Result{{Output: "y"}},
			Status:  job.CycleCompleted,
		})
	}
	_ = r.registry.Finish(id, job.StatusCompleted, "max iterations reached")
}

func (r *fakeRunner) runCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id]
}

func TestSubmitReturnsImmediately(t *testing.T) {
	registry := job.NewRegistry(nil)
	runner := newFakeRunner(registry, 3, 20*time.Millisecond)
	orch := New(registry, runner, nil, nil)

	start := time.Now()
	id, err := orch.Submit("test goal", 3)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 20*time.Millisecond, "submit must not wait for cycles")

	// Status is readable while the loop runs.
	view, err := orch.Status(id)
	require.NoError(t, err)
	assert.Contains(t, []job.Status{job.StatusPending, job.StatusInProgress}, view.State)

	orch.Wait(id)
	view, err = orch.Status(id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, view.State)
	assert.Equal(t, 1, runner.runCount(id))
}

func TestSubmitValidationFailsSynchronously(t *testing.T) {
	registry := job.NewRegistry(nil)
	orch := New(registry, newFakeRunner(registry, 1, 0), nil, nil)

	_, err := orch.Submit("", 3)
	require.ErrorIs(t, err, job.ErrValidation)

	_, err = orch.Submit("goal", 0)
	require.ErrorIs(t, err, job.ErrValidation)
}

func TestStatusUnknownJob(t *testing.T) {
	registry := job.NewRegistry(nil)
	orch := New(registry, newFakeRunner(registry, 1, 0), nil, nil)

	_, err := orch.Status("missing")
	require.ErrorIs(t, err, job.ErrNotFound)
}

func TestDistinctJobIDs(t *testing.T) {
	registry := job.NewRegistry(nil)
	orch := New(registry, newFakeRunner(registry, 1, 0), nil, nil)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := orch.Submit("goal", 1)
		require.NoError(t, err)
		require.False(t, seen[id], "job id %s reused", id)
		seen[id] = true
	}
	for id := range seen {
		orch.Wait(id)
	}
}

func TestCancelStopsJob(t *testing.T) {
	registry := job.NewRegistry(nil)
	runner := newFakeRunner(registry, 100, 10*time.Millisecond)
	orch := New(registry, runner, nil, nil)

	id, err := orch.Submit("goal", 100)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)
	orch.Cancel(id)
	orch.Wait(id)

	view, err := orch.Status(id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, view.State)
	assert.Equal(t, "job cancelled", view.Reason)
}

func TestShutdownWaitsForJobs(t *testing.T) {
	registry := job.NewRegistry(nil)
	runner := newFakeRunner(registry, 5, 5*time.Millisecond)
	orch := New(registry, runner, nil, nil)

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		id, err := orch.Submit("goal", 5)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, orch.Shutdown(ctx))

	// Every job reached a terminal state; none were orphaned mid-flight.
	for _, id := range ids {
		view, err := orch.Status(id)
		require.NoError(t, err)
		assert.True(t, view.State.Terminal(), "job %s left in %s", id, view.State)
	}

	// New submissions are rejected after shutdown.
	_, err := orch.Submit("goal", 1)
	require.Error(t, err)
}

package job

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pearl/internal/logging"
)

// ErrNotFound is returned when a job lookup fails because the requested ID
// does not exist in the registry.
var ErrNotFound = fmt.Errorf("job not found")

// ErrValidation is returned for malformed job submissions.
var ErrValidation = fmt.Errorf("invalid job submission")

// ErrInvalidState is returned when a transition is requested from a state
// that does not allow it.
var ErrInvalidState = fmt.Errorf("invalid job state")

// Registry is the single source of truth for job records. One writer (the
// job's own loop) and many readers (status polls) per job; every access goes
// through the registry's lock, so readers observe either the pre- or
// post-update snapshot, never a half-written cycle.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger logging.Logger
}

// NewRegistry creates an empty in-memory registry.
func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		jobs:   make(map[string]*Job),
		logger: logging.OrNop(logger),
	}
}

// Create allocates a new pending job and returns its id.
func (r *Registry) Create(goal string, maxIterations int) (string, error) {
	if strings.TrimSpace(goal) == "" {
		return "", fmt.Errorf("%w: goal must not be empty", ErrValidation)
	}
	if maxIterations <= 0 {
		return "", fmt.Errorf("%w: max iterations must be positive, got %d", ErrValidation, maxIterations)
	}

	now := time.Now()
	j := &Job{
		ID:            uuid.NewString(),
		Goal:          goal,
		MaxIterations: maxIterations,
		State:         StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
	return j.ID, nil
}

// Snapshot returns a deep copy of the job's current state.
func (r *Registry) Snapshot(id string) (View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j.snapshot(), nil
}

// Begin transitions the job from pending to in_progress.
func (r *Registry) Begin(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.State != StatusPending {
		return fmt.Errorf("%w: cannot begin job in state %q", ErrInvalidState, j.State)
	}
	j.State = StatusInProgress
	j.UpdatedAt = time.Now()
	return nil
}

// AppendCycle appends a terminal cycle and recomputes progress. Cycles are
// append-only and must arrive with contiguous 1-based indexes.
func (r *Registry) AppendCycle(id string, cycle Cycle) error {
	if err := cycle.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.State != StatusInProgress {
		return fmt.Errorf("%w: cannot append cycle to job in state %q", ErrInvalidState, j.State)
	}
	if want := len(j.Cycles) + 1; cycle.Index != want {
		return fmt.Errorf("%w: expected cycle index %d, got %d", ErrInvalidState, want, cycle.Index)
	}

	j.Cycles = append(j.Cycles, cycle)
	progress := float64(cycle.Index) / float64(j.MaxIterations)
	if progress > 1.0 {
		progress = 1.0
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
	return nil
}

// Finish moves the job to a terminal state. Calling Finish on an already
// terminal job is a warning no-op so side effects never fire twice.
func (r *Registry) Finish(id string, outcome Status, reason string) error {
	if !outcome.Terminal() {
		return fmt.Errorf("%w: finish requires a terminal outcome, got %q", ErrInvalidState, outcome)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.State.Terminal() {
		r.logger.Warn("Finish called on already terminal job %s (state=%s, requested=%s)", id, j.State, outcome)
		return nil
	}
	if j.State == StatusPending && outcome != StatusFailed {
		return fmt.Errorf("%w: pending job can only fail, got %q", ErrInvalidState, outcome)
	}

	j.State = outcome
	j.Reason = reason
	j.UpdatedAt = time.Now()
	return nil
}

package job

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a job. Transitions only move
// forward: pending → in_progress → {completed, failed}, with the single
// exception pending → failed for submissions that fail validation before
// the loop starts.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// validStatuses enumerates all accepted status values.
var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusFailed:     true,
}

// IsValid returns true if the status is one of the recognized values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CycleStatus is the per-cycle terminal state.
type CycleStatus string

const (
	CycleCompleted CycleStatus = "completed"
	CycleErrored   CycleStatus = "errored"
)

// Assessment is the structured output of a cycle's planning step.
type Assessment struct {
	GoalSatisfied   bool     `json:"goal_satisfied"`
	ProgressScore   int      `json:"progress_score"`
	Gaps            []string `json:"gaps,omitempty"`
	Risks           []string `json:"risks,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Action is one planned step within a cycle.
type Action struct {
	Tool        string `json:"tool"`
	Input       string `json:"input"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// Result is the outcome of one action, in the same position as the action
// that produced it. A failed action carries its error here instead of
// aborting the cycle.
type Result struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Cycle is one plan/execute/reflect iteration. Cycles are appended to a job
// only once they reach a terminal per-cycle status.
type Cycle struct {
	Index      int         `json:"index"` // 1-based, contiguous
	Assessment Assessment  `json:"assessment"`
	Actions    []Action    `json:"actions"`
	Results    []Result    `json:"results"`
	Reflection string      `json:"reflection,omitempty"`
	Status     CycleStatus `json:"status"`
	// Note records non-fatal anomalies, e.g. a memory write that failed.
	Note string `json:"note,omitempty"`
}

// Validate checks the per-cycle invariants before a cycle is appended.
func (c *Cycle) Validate() error {
	if c.Index <= 0 {
		return fmt.Errorf("cycle: index must be positive, got %d", c.Index)
	}
	if c.Status != CycleCompleted && c.Status != CycleErrored {
		return fmt.Errorf("cycle: non-terminal status %q", c.Status)
	}
	if c.Status == CycleCompleted && len(c.Results) != len(c.Actions) {
		return fmt.Errorf("cycle: %d results for %d actions", len(c.Results), len(c.Actions))
	}
	return nil
}

// Job is one goal-driven run of the cognitive loop.
type Job struct {
	ID            string    `json:"id"`
	Goal          string    `json:"goal"`
	MaxIterations int       `json:"max_iterations"`
	State         Status    `json:"state"`
	Progress      float64   `json:"progress"` // [0,1], non-decreasing while in progress
	Cycles        []Cycle   `json:"cycles"`
	Reason        string    `json:"reason,omitempty"` // final outcome marker
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// View is an immutable snapshot of a job, safe to hold across loop updates.
type View = Job

// snapshot returns a deep copy of the job.
func (j *Job) snapshot() View {
	view := *j
	view.Cycles = make([]Cycle, len(j.Cycles))
	copy(view.Cycles, j.Cycles)
	for i := range view.Cycles {
		view.Cycles[i].Actions = append([]Action(nil), j.Cycles[i].Actions...)
		view.Cycles[i].Results = append([]Result(nil), j.Cycles[i].Results...)
	}
	return view
}

package agent

import (
	"context"
	"fmt"
	"sort"

	pearlerrors "pearl/internal/errors"
	"pearl/internal/job"
	"pearl/internal/logging"
	"pearl/internal/memory"
	"pearl/internal/tools"
)

// Reasoner is the gated reasoning endpoint consumed by the loop.
type Reasoner interface {
	Invoke(ctx context.Context, prompt string, contextText string) (string, error)
}

// Dispatcher resolves and executes planned actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, input string) (*tools.Observation, error)
	Names() []string
}

// MemoryBank is the long-term memory surface the loop reads and writes.
type MemoryBank interface {
	Remember(ctx context.Context, rec memory.Record) error
	Recall(ctx context.Context, query string, topK int) ([]memory.SearchResult, error)
}

// JobStore is the registry surface the loop drives. *job.Registry satisfies
// it; tests substitute spies.
type JobStore interface {
	Snapshot(id string) (job.View, error)
	Begin(id string) error
	AppendCycle(id string, cycle job.Cycle) error
	Finish(id string, outcome job.Status, reason string) error
}

// Config tunes the cognitive loop.
type Config struct {
	TopKMemories int                     // memories recalled for planning (default: 3)
	Retry        pearlerrors.RetryConfig // backoff for transient reasoning failures
}

// Engine drives one job from in_progress to a terminal state through
// repeated plan / execute / reflect cycles.
type Engine struct {
	jobs     JobStore
	reasoner Reasoner
	tools    Dispatcher
	memory   MemoryBank
	config   Config
	logger   logging.Logger
}

// New creates a cognitive loop engine.
func New(jobs JobStore, reasoner Reasoner, dispatcher Dispatcher, bank MemoryBank, config Config, logger logging.Logger) *Engine {
	if config.TopKMemories <= 0 {
		config.TopKMemories = 3
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = pearlerrors.DefaultRetryConfig()
	}
	return &Engine{
		jobs:     jobs,
		reasoner: reasoner,
		tools:    dispatcher,
		memory:   bank,
		config:   config,
		logger:   logging.OrNop(logger),
	}
}

// Run executes the loop for the given job until a terminal state. It is
// meant to run on its own goroutine; every exit path reaches Finish exactly
// once and no panic escapes.
func (e *Engine) Run(ctx context.Context, id string) {
	finished := false
	finish := func(outcome job.Status, reason string) {
		if finished {
			return
		}
		finished = true
		if err := e.jobs.Finish(id, outcome, reason); err != nil {
			e.logger.Error("Job %s: finish(%s) failed: %v", id, outcome, err)
		} else {
			e.logger.Info("Job %s finished: %s (%s)", id, outcome, reason)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Job %s: panic in cognitive loop: %v", id, r)
			finish(job.StatusFailed, fmt.Sprintf("internal error: %v", r))
		}
	}()

	view, err := e.jobs.Snapshot(id)
	if err != nil {
		e.logger.Error("Job %s: snapshot failed before start: %v", id, err)
		return
	}

	if err := e.jobs.Begin(id); err != nil {
		finish(job.StatusFailed, fmt.Sprintf("begin: %v", err))
		return
	}

	reflections := make([]string, 0, view.MaxIterations)

	for index := 1; index <= view.MaxIterations; index++ {
		if ctx.Err() != nil {
			finish(job.StatusFailed, "job cancelled")
			return
		}

		p, err := e.planCycle(ctx, view.Goal, reflections)
		if err != nil {
			finish(job.StatusFailed, fmt.Sprintf("planning failed: %v", err))
			return
		}

		if p.Assessment.GoalSatisfied {
			cycle := job.Cycle{Index: index, Assessment: p.Assessment, Status: job.CycleCompleted}
			if err := e.jobs.AppendCycle(id, cycle); err != nil {
				finish(job.StatusFailed, fmt.Sprintf("record cycle: %v", err))
				return
			}
			finish(job.StatusCompleted, "goal achieved")
			return
		}

		if ctx.Err() != nil {
			finish(job.StatusFailed, "job cancelled")
			return
		}

		actions := orderByPriority(p.Actions)
		results := e.executeActions(ctx, actions)

		if ctx.Err() != nil {
			finish(job.StatusFailed, "job cancelled")
			return
		}

		cycle := job.Cycle{
			Index:      index,
			Assessment: p.Assessment,
			Actions:    actions,
			Results:    results,
		}

		learned, err := e.reflectCycle(ctx, actions, results)
		if err != nil {
			cycle.Status = job.CycleErrored
			cycle.Note = fmt.Sprintf("reflection failed: %v", err)
			if appendErr := e.jobs.AppendCycle(id, cycle); appendErr != nil {
				e.logger.Error("Job %s: record errored cycle %d: %v", id, index, appendErr)
			}
			finish(job.StatusFailed, fmt.Sprintf("reflection failed: %v", err))
			return
		}

		cycle.Reflection = learned.Learning
		cycle.Status = job.CycleCompleted
		reflections = append(reflections, learned.Learning)

		rec := memory.Record{
			Content:          fmt.Sprintf("From the goal %q, I learned: %s", view.Goal, learned.Learning),
			SourceJobID:      id,
			SourceCycleIndex: index,
		}
		if err := e.memory.Remember(ctx, rec); err != nil {
			// A learning that fails to persist must not fail the job.
			e.logger.Warn("Job %s: memory write failed on cycle %d: %v", id, index, err)
			cycle.Note = fmt.Sprintf("memory write failed: %v", err)
		}

		if err := e.jobs.AppendCycle(id, cycle); err != nil {
			finish(job.StatusFailed, fmt.Sprintf("record cycle: %v", err))
			return
		}
	}

	finish(job.StatusCompleted, "max iterations reached")
}

// planCycle recalls relevant memories, asks the reasoner for an assessment
// and an action list, and falls back to a single reasoning action when the
// planner's output is unusable after repair.
func (e *Engine) planCycle(ctx context.Context, goal string, reflections []string) (*plan, error) {
	memories, err := e.memory.Recall(ctx, goal, e.config.TopKMemories)
	if err != nil {
		// Recall is best effort; planning proceeds without memories.
		e.logger.Warn("Memory recall failed: %v", err)
		memories = nil
	}

	contextText := buildPlanningContext(goal, reflections, memories)
	prompt := planningPrompt(e.tools.Names())

	raw, err := pearlerrors.RetryWithResult(ctx, e.config.Retry, e.logger, func(ctx context.Context) (string, error) {
		return e.reasoner.Invoke(ctx, prompt, contextText)
	})
	if err != nil {
		return nil, err
	}

	p, err := parsePlan(raw)
	if err != nil {
		e.logger.Warn("Planner output unparseable, using fallback plan: %v", err)
		return fallbackPlan(goal), nil
	}
	return p, nil
}

// fallbackPlan keeps the loop moving when the planner's JSON is beyond
// repair: one reasoning action straight at the goal.
func fallbackPlan(goal string) *plan {
	return &plan{
		Assessment: job.Assessment{ProgressScore: 10},
		Actions: []job.Action{{
			Tool:        "reason",
			Input:       goal,
			Description: "Work directly toward the goal.",
			Priority:    1,
		}},
	}
}

// orderByPriority returns actions in descending priority, stable on the
// planner's original order.
func orderByPriority(actions []job.Action) []job.Action {
	ordered := append([]job.Action(nil), actions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return ordered
}

// executeActions dispatches every action in order, recording failures as
// errored results instead of aborting the cycle.
func (e *Engine) executeActions(ctx context.Context, actions []job.Action) []job.Result {
	results := make([]job.Result, 0, len(actions))
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			results = append(results, job.Result{Error: "cancelled before execution"})
			continue
		}

		obs, err := e.tools.Dispatch(ctx, action.Tool, action.Input)
		if err != nil {
			e.logger.Warn("Action %q via %s failed: %v", action.Description, action.Tool, err)
			results = append(results, job.Result{Error: err.Error()})
			continue
		}
		results = append(results, job.Result{Output: obs.Content})
	}
	return results
}

// reflectCycle extracts the cycle's learning from its actions and results.
func (e *Engine) reflectCycle(ctx context.Context, actions []job.Action, results []job.Result) (*reflection, error) {
	prompt := reflectionPrompt(actions, results)

	raw, err := pearlerrors.RetryWithResult(ctx, e.config.Retry, e.logger, func(ctx context.Context) (string, error) {
		return e.reasoner.Invoke(ctx, prompt, "")
	})
	if err != nil {
		return nil, err
	}

	return parseReflection(raw)
}

package tools

import (
	"context"
	"errors"
	"fmt"
)

// Observation is the outcome a tool returns for one action. Tools never
// mutate job state; the cognitive loop incorporates observations itself.
type Observation struct {
	Content string
}

// Tool is one externally-visible capability, dispatched by action name.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input string) (*Observation, error)
}

// ErrUnknownTool is returned when an action names a tool that is not
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// ExecutionError wraps a collaborator failure during tool dispatch.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

package tools

import (
	"context"
	"fmt"
	"strings"
)

// Completer is the slice of the reasoning gate the reason tool needs.
type Completer interface {
	Invoke(ctx context.Context, prompt string, contextText string) (string, error)
}

// ReasonTool executes a free-form reasoning step against the gated
// reasoning endpoint. It is the default tool for actions that name no
// external capability.
type ReasonTool struct {
	gate Completer
}

// NewReasonTool creates the reason tool.
func NewReasonTool(gate Completer) *ReasonTool {
	return &ReasonTool{gate: gate}
}

func (t *ReasonTool) Name() string {
	return "reason"
}

func (t *ReasonTool) Description() string {
	return "Work through a research or analysis task with the reasoning model. Input is the task description; returns a direct, actionable result."
}

func (t *ReasonTool) Execute(ctx context.Context, input string) (*Observation, error) {
	task := strings.TrimSpace(input)
	if task == "" {
		return nil, fmt.Errorf("empty reasoning task")
	}

	prompt := fmt.Sprintf(
		"Execute the following task. Provide a comprehensive, direct, and actionable result.\n\nTask: %s",
		task,
	)
	response, err := t.gate.Invoke(ctx, prompt, "")
	if err != nil {
		return nil, err
	}
	return &Observation{Content: response}, nil
}

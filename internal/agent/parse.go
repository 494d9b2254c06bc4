package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"pearl/internal/job"
)

// plan is the parsed output of one planning call.
type plan struct {
	Assessment job.Assessment `json:"assessment"`
	Actions    []job.Action   `json:"actions"`
}

// reflection is the parsed output of one reflection call.
type reflection struct {
	Learning    string   `json:"learning"`
	Adjustments []string `json:"adjustments,omitempty"`
}

// stripFences removes markdown code fences models like to wrap JSON in.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// unmarshalLenient decodes model JSON, repairing it first when the strict
// parse fails.
func unmarshalLenient(raw string, v any) error {
	payload := stripFences(raw)
	if err := json.Unmarshal([]byte(payload), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return fmt.Errorf("repair model JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("decode repaired model JSON: %w", err)
	}
	return nil
}

// parsePlan decodes a planning response. Actions with no tool default to the
// reasoning tool, matching the planner's contract for general AI tasks.
func parsePlan(raw string) (*plan, error) {
	var p plan
	if err := unmarshalLenient(raw, &p); err != nil {
		return nil, err
	}
	for i := range p.Actions {
		if strings.TrimSpace(p.Actions[i].Tool) == "" {
			p.Actions[i].Tool = "reason"
		}
		if strings.TrimSpace(p.Actions[i].Input) == "" {
			p.Actions[i].Input = p.Actions[i].Description
		}
	}
	return &p, nil
}

// parseReflection decodes a reflection response.
func parseReflection(raw string) (*reflection, error) {
	var r reflection
	if err := unmarshalLenient(raw, &r); err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.Learning) == "" {
		return nil, fmt.Errorf("reflection carries no learning")
	}
	return &r, nil
}

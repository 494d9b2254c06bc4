package agent

import (
	"fmt"
	"strings"

	"pearl/internal/job"
	"pearl/internal/memory"
)

// buildPlanningContext assembles the system context for the planning call:
// the goal, reflections from prior cycles, and recalled learnings.
func buildPlanningContext(goal string, reflections []string, memories []memory.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GOAL: %s\n", goal)

	if len(reflections) > 0 {
		b.WriteString("\nREFLECTIONS FROM EARLIER CYCLES:\n")
		for i, r := range reflections {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
	}

	if len(memories) > 0 {
		b.WriteString("\nRELEVANT PAST LEARNINGS:\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- %s\n", m.Record.Content)
		}
	} else {
		b.WriteString("\nRELEVANT PAST LEARNINGS:\nNo memories available yet.\n")
	}

	return b.String()
}

// planningPrompt asks the model to assess progress toward the goal and plan
// the next cycle's actions. The response must be a single JSON object.
func planningPrompt(toolNames []string) string {
	return fmt.Sprintf(`You are an AI agent planning the next cycle of work toward the goal in your context. Respond ONLY with valid JSON.

AVAILABLE_TOOLS: %s

First assess how close the goal is to being met, then plan 2-3 actionable steps for this cycle. Each action either uses an available tool or is a research/analysis question for the "reason" tool.

Respond with a JSON object of this exact shape:
{
  "assessment": {
    "goal_satisfied": <true if the goal is already fully met and no further work is needed>,
    "progress_score": <number 0-100 indicating closeness to the goal>,
    "gaps": ["list of knowledge or capability gaps"],
    "risks": ["list of potential risks or obstacles"],
    "recommendations": ["list of high-level next steps"]
  },
  "actions": [
    {
      "tool": "reason",
      "input": "Research the core principles of sustainable urban gardening.",
      "description": "Establish a principled baseline before searching.",
      "priority": 5
    },
    {
      "tool": "web_search",
      "input": "recent developments in vertical farming techniques",
      "description": "Find current articles on vertical farming.",
      "priority": 4
    }
  ]
}

When "goal_satisfied" is true, return an empty "actions" array.`, strings.Join(toolNames, ", "))
}

// reflectionPrompt asks the model to extract one learning from the cycle's
// executed actions and their outcomes.
func reflectionPrompt(actions []job.Action, results []job.Result) string {
	var b strings.Builder
	b.WriteString("You are a learning AI. Reflect on the completed cycle below and respond ONLY with valid JSON.\n\n")
	for i, action := range actions {
		fmt.Fprintf(&b, "ACTION %d (%s): %s\n", i+1, action.Tool, action.Input)
		if i < len(results) {
			if results[i].Error != "" {
				fmt.Fprintf(&b, "RESULT %d: FAILED: %s\n", i+1, results[i].Error)
			} else {
				fmt.Fprintf(&b, "RESULT %d: %s\n", i+1, truncateForPrompt(results[i].Output, 500))
			}
		}
	}
	b.WriteString(`
Provide your learning as a JSON object:
{
  "learning": "A concise, key insight or fact learned from this cycle.",
  "adjustments": ["An adjustment for future plans (e.g. 'focus more on X', 'avoid Y')."]
}`)
	return b.String()
}

func truncateForPrompt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

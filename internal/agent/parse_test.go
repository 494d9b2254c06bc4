package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	raw := `{
		"assessment": {"goal_satisfied": false, "progress_score": 35, "gaps": ["no sources yet"]},
		"actions": [
			{"tool": "web_search", "input": "vertical farming 2026", "description": "find articles", "priority": 4},
			{"tool": "", "input": "", "description": "summarize principles", "priority": 5}
		]
	}`

	p, err := parsePlan(raw)
	require.NoError(t, err)
	assert.False(t, p.Assessment.GoalSatisfied)
	assert.Equal(t, 35, p.Assessment.ProgressScore)
	require.Len(t, p.Actions, 2)

	// Empty tool defaults to reason; empty input falls back to description.
	assert.Equal(t, "reason", p.Actions[1].Tool)
	assert.Equal(t, "summarize principles", p.Actions[1].Input)
}

func TestParsePlanStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"assessment\": {\"goal_satisfied\": true, \"progress_score\": 100}, \"actions\": []}\n```"

	p, err := parsePlan(raw)
	require.NoError(t, err)
	assert.True(t, p.Assessment.GoalSatisfied)
	assert.Empty(t, p.Actions)
}

func TestParsePlanRepairsSloppyJSON(t *testing.T) {
	// Trailing comma and single quotes, typical model output damage.
	raw := `{'assessment': {'goal_satisfied': false, 'progress_score': 20,}, 'actions': [{'tool': 'reason', 'input': 'think', 'description': 'think', 'priority': 1},]}`

	p, err := parsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, 20, p.Assessment.ProgressScore)
	require.Len(t, p.Actions, 1)
}

func TestParsePlanRejectsGarbage(t *testing.T) {
	_, err := parsePlan("I could not produce a plan, sorry!")
	require.Error(t, err)
}

func TestParseReflection(t *testing.T) {
	r, err := parseReflection(`{"learning": "LED spectra drive yields", "adjustments": ["search for spectra data"]}`)
	require.NoError(t, err)
	assert.Equal(t, "LED spectra drive yields", r.Learning)
	require.Len(t, r.Adjustments, 1)
}

func TestParseReflectionRequiresLearning(t *testing.T) {
	_, err := parseReflection(`{"learning": "", "adjustments": []}`)
	require.Error(t, err)
}

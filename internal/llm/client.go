package llm

import "context"

// Client is the reasoning-endpoint contract consumed by the cognitive loop.
// Prompt carries the instruction for this call; contextText carries the
// supporting material (goal, memories, prior reflections) and may be empty.
type Client interface {
	// Complete returns the model's text response. Failures are classified
	// through internal/errors as transient (retryable) or permanent.
	Complete(ctx context.Context, prompt string, contextText string) (string, error)

	// Model returns the model name used by this client.
	Model() string
}

// Config holds reasoning client configuration.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string            // Optional, defaults to the OpenAI endpoint
	TimeoutSec int               // Per-call timeout in seconds (default: 120)
	Headers    map[string]string // Extra headers sent with every request
}

package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient implements Client for tests. Responses are returned in the
// order queued; Fn takes precedence when set.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	calls     []string
	err       error

	// Fn, when non-nil, handles every call.
	Fn func(ctx context.Context, prompt, contextText string) (string, error)
}

// NewMockClient creates a mock that replays the given responses.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{responses: responses}
}

// FailWith makes every subsequent call return err.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Enqueue appends responses to the replay queue.
func (m *MockClient) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// CallCount returns how many times Complete has been invoked.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the prompts seen so far.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) Complete(ctx context.Context, prompt string, contextText string) (string, error) {
	if m.Fn != nil {
		m.mu.Lock()
		m.calls = append(m.calls, prompt)
		m.mu.Unlock()
		return m.Fn(ctx, prompt, contextText)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock client: no responses queued")
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next, nil
}

func (m *MockClient) Model() string {
	return "mock-model"
}

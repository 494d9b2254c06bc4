package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
	obs  *Observation
	err  error
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Execute(ctx context.Context, input string) (*Observation, error) {
	return s.obs, s.err
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubTool{name: "echo", obs: &Observation{Content: "hello"}}))

	obs, err := registry.Dispatch(context.Background(), "echo", "input")
	require.NoError(t, err)
	assert.Equal(t, "hello", obs.Content)
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubTool{name: "echo"}))
	require.Error(t, registry.Register(&stubTool{name: "echo"}))
}

func TestDispatchUnknownTool(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Dispatch(context.Background(), "missing", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestDispatchWrapsToolFailure(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubTool{name: "flaky", err: fmt.Errorf("upstream down")}))

	_, err := registry.Dispatch(context.Background(), "flaky", "")
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "flaky", execErr.Tool)
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubTool{name: "web_search"}))
	require.NoError(t, registry.Register(&stubTool{name: "reason"}))

	assert.Equal(t, []string{"reason", "web_search"}, registry.Names())
}

func TestWebSearchFormatsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"results":[{"title":"Vertical Farming","url":"https://example.com","content":"LED spectra matter."}]}`))
	}))
	defer server.Close()

	tool := NewWebSearchTool("test-key")
	tool.endpoint = server.URL

	obs, err := tool.Execute(context.Background(), "vertical farming")
	require.NoError(t, err)
	assert.Contains(t, obs.Content, "Vertical Farming")
	assert.Contains(t, obs.Content, "https://example.com")
}

func TestWebSearchRequiresAPIKey(t *testing.T) {
	tool := NewWebSearchTool("")
	_, err := tool.Execute(context.Background(), "anything")
	require.Error(t, err)
}

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Invoke(ctx context.Context, prompt, contextText string) (string, error) {
	return s.response, s.err
}

func TestReasonToolDelegatesToGate(t *testing.T) {
	tool := NewReasonTool(&stubCompleter{response: "analysis complete"})

	obs, err := tool.Execute(context.Background(), "summarize findings")
	require.NoError(t, err)
	assert.Equal(t, "analysis complete", obs.Content)

	_, err = tool.Execute(context.Background(), "  ")
	require.Error(t, err)
}

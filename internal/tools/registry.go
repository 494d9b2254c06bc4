package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry resolves action names to tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool, nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves the named tool and executes it. Collaborator failures
// are wrapped in *ExecutionError; an unregistered name yields ErrUnknownTool.
func (r *Registry) Dispatch(ctx context.Context, name string, input string) (*Observation, error) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	obs, err := tool.Execute(ctx, input)
	if err != nil {
		return nil, &ExecutionError{Tool: name, Err: err}
	}
	if obs == nil {
		return nil, &ExecutionError{Tool: name, Err: fmt.Errorf("tool returned no observation")}
	}
	return obs, nil
}

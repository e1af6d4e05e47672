package framework

import (
	"context"
	"fmt"
	"sync"
)

// Tool defines an action agents can request mid-completion. The metadata
// doubles as a schema that LLMs can reason about when deciding which tool to
// call.
type Tool interface {
	Name() string
	Description() string
	Category() string
	Parameters() []ToolParameter
	Execute(ctx context.Context, state *State, args map[string]interface{}) (*ToolResult, error)
	IsAvailable(ctx context.Context, state *State) bool
}

// ToolParameter describes an argument the tool accepts.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     interface{}
}

// ToolStatus discriminates tool outcomes on the wire.
type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// ToolResult is returned by every tool execution. Exactly one of Data or
// Error is meaningful, selected by Status.
type ToolResult struct {
	Status ToolStatus             `json:"status"`
	Data   map[string]interface{} `json:"data,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// ToolSuccess wraps a payload in a success result.
func ToolSuccess(data map[string]interface{}) *ToolResult {
	return &ToolResult{Status: ToolStatusSuccess, Data: data}
}

// ToolError wraps an error message in an error result.
func ToolError(format string, args ...interface{}) *ToolResult {
	return &ToolResult{Status: ToolStatusError, Error: fmt.Sprintf(format, args...)}
}

// ToolRegistry maintains tools and keeps metadata lookups fast. Agents share
// one registry instance so every phase sees the same affordances.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewToolRegistry builds a registry instance.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.order = append(r.order, tool.Name())
	return nil
}

// Get fetches a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// All returns tools in registration order.
func (r *ToolRegistry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, r.tools[name])
	}
	return res
}

// Len reports the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

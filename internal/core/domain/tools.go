package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool represents a named local capability the model may request
type Tool struct {
	Name        string
	Description string
	Parameters  ToolParameters
	Execute     ToolExecutor
}

// ToolParameters defines the JSON schema for tool inputs
type ToolParameters struct {
	Type       string                 `json:"type"`               // "object"
	Properties map[string]interface{} `json:"properties"`         // param definitions
	Required   []string               `json:"required,omitempty"` // required param names
}

// ToolExecutor is the function signature for tool execution
type ToolExecutor func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ToolRegistry maps tool names to definitions. Names are case-sensitive and
// lookups are exact.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewToolRegistry creates a new empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry. A tool registered under an existing
// name replaces the previous definition.
func (r *ToolRegistry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Execute == nil {
		return fmt.Errorf("tool %s has no executor", tool.Name)
	}
	if tool.Parameters.Type == "" {
		tool.Parameters.Type = "object"
	}
	if tool.Parameters.Properties == nil {
		tool.Parameters.Properties = map[string]interface{}{}
	}

	r.mu.Lock()
	r.tools[tool.Name] = tool
	r.mu.Unlock()
	return nil
}

// Lookup returns the tool registered under name. A miss is reported through
// the boolean, never as an error.
func (r *ToolRegistry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// ListTools returns all registered tools ordered by name
func (r *ToolRegistry) ListTools() []*Tool {
	r.mu.RLock()
	tools := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Names returns the registered tool names in order
func (r *ToolRegistry) Names() []string {
	tools := r.ListTools()
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Only returns a registry restricted to names, sharing the tool definitions
// with r. Names that r does not know are returned as unknown.
func (r *ToolRegistry) Only(names []string) (sub *ToolRegistry, unknown []string) {
	sub = NewToolRegistry()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range names {
		if tool, ok := r.tools[n]; ok {
			sub.tools[n] = tool
		} else {
			unknown = append(unknown, n)
		}
	}
	return sub, unknown
}

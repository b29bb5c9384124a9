// Package tools provides the tool registry and the task tools exposed
// over MCP.
package tools

import (
	"context"
)

// Tool represents an executable tool.
type Tool interface {
	// Name returns the tool name.
	Name() string
	// Description returns a description for the calling agent.
	Description() string
	// Annotations returns the MCP behavior hints for the tool.
	Annotations() Annotations
	// Parameters returns the JSON schema for parameters.
	Parameters() map[string]interface{}
	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Annotations are the MCP tool behavior hints advertised in tools/list.
type Annotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint"`
	DestructiveHint bool   `json:"destructiveHint"`
	IdempotentHint  bool   `json:"idempotentHint"`
	OpenWorldHint   bool   `json:"openWorldHint"`
}

// Definition is the client-facing tool definition.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Annotations Annotations
}

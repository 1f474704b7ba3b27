// Package tool implements the function / tool calling subsystem that lets the
// model invoke structured capabilities (searches, lookups, sandboxed code)
// with schema validated arguments, consistent error handling and metadata for
// model guidance.
package tool

import (
	"github.com/hupe1980/searchmesh/core"
)

// Tool defines a capability the model may invoke mid-turn.
//
// All tools receive a ToolContext carrying the turn's cancellation context,
// correlation ids and a logger. Implementations must be safe for concurrent
// use: the orchestrator runs calls of one model step in parallel.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the model to help it decide when to use it.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and model function calling.
	Parameters() map[string]any

	// Call executes the tool with already validated arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError = core.ToolError

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool string, kind core.ErrorKind, message string) *ToolError {
	return core.NewToolError(tool, kind, message)
}

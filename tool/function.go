package tool

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds the JSON schema describing accepted arguments
//   - Invokes the wrapped function with a *core.ToolContext giving access to
//     the turn context, logging and the function call ID
//   - Normalizes error handling so callers receive *ToolError carrying a kind:
//     a *ToolError returned by the function is forwarded unchanged, any other
//     error keeps the kind found on its chain (provider kinds, AllFailed) and
//     falls back to ProviderFailure
//
// Argument validation against the schema happens in Registry.Execute, which
// compiles the schema once at registration.
//
// Concurrency:
//
//	A FunctionTool has no internal mutable state after construction and is safe for
//	concurrent use by multiple goroutines.
type FunctionTool struct {
	// Tool identifier (snake_case)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	weather := NewFunctionTool(
//	  "get_weather_data",
//	  "Get the weather data for the given coordinates.",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "lat": map[string]any{"type": "number"},
//	      "lon": map[string]any{"type": "number"},
//	    },
//	    "required": []any{"lat", "lon"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return client.Forecast(tc.Context(), args["lat"].(float64), args["lon"].(float64))
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection (see util.CreateSchema for the supported tags).
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// NewTypedTool is NewFunctionToolFromStruct with the arguments decoded into T
// before fn runs.
func NewTypedTool[T any](
	name, description string,
	fn func(toolCtx *core.ToolContext, args T) (any, error),
) *FunctionTool {
	var zero T
	return NewFunctionToolFromStruct(name, description, zero, func(tc *core.ToolContext, raw map[string]any) (any, error) {
		var args T
		if err := DecodeArgs(raw, &args); err != nil {
			return nil, NewToolError(name, core.KindInvalidArguments, err.Error())
		}
		return fn(tc, args)
	})
}

// DecodeArgs converts a validated argument bag into a typed struct.
func DecodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call invokes the underlying function.
//
// Logging Fields:
//
//	tool: tool name
//	fc_id: function call identifier (correlates model request & tool execution)
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	result, err := t.fn(toolCtx, args)
	if err != nil {
		toolErr := AsToolError(t.name, err)
		logger.Error("tool.call.error", "tool", t.name, "kind", string(toolErr.Kind), "error", toolErr.Message)
		return nil, toolErr
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

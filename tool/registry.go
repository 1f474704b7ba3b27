package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/internal/util"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/model"
)

type entry struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps tool names to tools and dispatches invocations. It is filled
// at process start and read concurrently afterwards.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]entry
	logger logging.Logger
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Registry{tools: map[string]entry{}, logger: logger}
}

// Register adds tools, compiling each parameter schema once. Duplicate names
// and invalid schemas are rejected.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return core.NewError(core.KindConfiguration, "tool name must not be empty")
		}
		if _, exists := r.tools[name]; exists {
			return core.NewError(core.KindConfiguration, fmt.Sprintf("tool %q already registered", name))
		}
		schema, err := util.CompileSchema(name, t.Parameters())
		if err != nil {
			return core.WrapError(core.KindConfiguration, fmt.Sprintf("tool %q has an invalid schema", name), err)
		}
		r.tools[name] = entry{tool: t, schema: schema}
	}
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.tool, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the model-facing declarations of the named tools, in
// the given order. Unknown names are skipped.
func (r *Registry) Definitions(names []string) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(names))
	for _, n := range names {
		t, ok := r.Get(n)
		if !ok {
			continue
		}
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs one invocation: decode rawArgs, apply schema defaults,
// validate, call. It never returns an error or panics; every failure is
// reported in the FunctionResponse. The tool runs with ctx as its context.
func (r *Registry) Execute(ctx context.Context, toolCtx *core.ToolContext, name, rawArgs string) core.FunctionResponse {
	toolCtx = toolCtx.WithContext(ctx)
	resp := core.FunctionResponse{ID: toolCtx.FunctionCallID(), Name: name}
	start := time.Now()

	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		resp.Error = NewToolError(name, core.KindInvalidArguments, fmt.Sprintf("unknown tool %q", name))
		r.logCall(name, start, resp.Error)
		return resp
	}

	args, err := decodeArgs(rawArgs)
	if err != nil {
		resp.Error = NewToolError(name, core.KindInvalidArguments, err.Error())
		r.logCall(name, start, resp.Error)
		return resp
	}
	args = util.ApplyDefaults(args, e.tool.Parameters())

	normalized, err := util.Normalize(args)
	if err == nil {
		err = e.schema.Validate(normalized)
	}
	if err != nil {
		resp.Error = NewToolError(name, core.KindInvalidArguments, "parameter validation failed: "+validationMessage(err))
		resp.Error.Details = args
		r.logCall(name, start, resp.Error)
		return resp
	}
	if m, ok := normalized.(map[string]any); ok {
		args = m
	}

	result, callErr := safeCall(e.tool, toolCtx, args)
	if callErr != nil {
		resp.Error = callErr
	} else {
		resp.Response = result
	}
	r.logCall(name, start, resp.Error)
	return resp
}

func (r *Registry) logCall(name string, start time.Time, toolErr *ToolError) {
	var err error
	if toolErr != nil {
		err = toolErr
	}
	if tl, ok := r.logger.(logging.ToolCallLogger); ok {
		tl.LogToolCall(name, time.Since(start), toolErr == nil, err)
		return
	}
	if toolErr != nil {
		r.logger.Warn("tool.execute.failed", "tool", name, "kind", string(toolErr.Kind), "error", toolErr.Message)
	}
}

// safeCall invokes the tool body, converting errors and panics into ToolErrors.
func safeCall(t Tool, toolCtx *core.ToolContext, args map[string]any) (result any, toolErr *ToolError) {
	defer func() {
		if rec := recover(); rec != nil {
			toolCtx.Logger().Error("tool.call.panic", "tool", t.Name(), "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			result = nil
			toolErr = NewToolError(t.Name(), core.KindProviderFailure, fmt.Sprintf("panic in tool: %v", rec))
		}
	}()
	res, err := t.Call(toolCtx, args)
	if err != nil {
		return nil, AsToolError(t.Name(), err)
	}
	return res, nil
}

// AsToolError converts err into a ToolError, keeping a typed kind found on
// its chain and falling back to ProviderFailure.
func AsToolError(name string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	kind := core.KindOf(err, core.KindProviderFailure)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = core.KindUnavailable
	}
	return NewToolError(name, kind, err.Error())
}

func decodeArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func validationMessage(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return strings.ReplaceAll(ve.Error(), "\n", "; ")
	}
	return err.Error()
}

package core

import (
	"context"

	"github.com/hupe1980/searchmesh/logging"
)

// ToolContext provides the scope handed to a tool implementation for one
// invocation: the turn's cancellation context, correlation identifiers and a
// logger. Working data of an invocation stays local to it; nothing mutable is
// shared across invocations through the context.
type ToolContext struct {
	ctx            context.Context
	turnID         string
	mode           string
	functionCallID string
	logger         logging.Logger
}

// NewToolContext constructs a tool context bound to ctx and a unique functionCallID.
func NewToolContext(ctx context.Context, turnID, mode, functionCallID string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{
		ctx:            ctx,
		turnID:         turnID,
		mode:           mode,
		functionCallID: functionCallID,
		logger:         logger,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// TurnID returns the turn identifier the invocation belongs to.
func (tc *ToolContext) TurnID() string { return tc.turnID }

// Mode returns the active mode of the turn.
func (tc *ToolContext) Mode() string { return tc.mode }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// WithContext returns a shallow copy bound to ctx. Tools use it to scope
// sub-operations (e.g. a fan-out batch) without losing correlation data.
func (tc *ToolContext) WithContext(ctx context.Context) *ToolContext {
	cp := *tc
	cp.ctx = ctx
	return &cp
}

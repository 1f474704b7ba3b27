package model

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/hupe1980/searchmesh/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the orchestrator.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt
	Contents     []core.Content   `json:"contents"`     // Conversation so far, including tool results
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage = core.Usage

// Response is a (partial or final) chunk emitted by a streaming model.
// Partial chunks carry text deltas only; the final chunk carries the full
// assistant content including every tool call of the step.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "gemini", "openai", "anthropic", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the orchestrator to drive generation.
// Implementations close both channels when generation ends; at most one error is sent.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ClassifyStatus maps a backend HTTP status to an error kind.
func ClassifyStatus(status int) core.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.KindUnauthorized
	case status == http.StatusTooManyRequests:
		return core.KindRateLimited
	case status >= 500:
		return core.KindUnavailable
	default:
		return core.KindModel
	}
}

// Step scripts one MockModel generation: the text chunks streamed first and
// the tool calls attached to the final chunk.
type Step struct {
	Chunks    []string
	ToolCalls []core.FunctionCall
	Err       error // returned instead of any output when set
	Block     bool  // wait for ctx cancellation before producing output
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Each Generate call consumes the next scripted Step; once the script is
// exhausted it echoes the last user text.
type MockModel struct {
	info Info

	mu       sync.Mutex
	steps    []Step
	requests []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string, steps ...Step) *MockModel {
	return &MockModel{
		info:  Info{Name: name, Provider: "mock", SupportsTools: true},
		steps: steps,
	}
}

// Requests returns copies of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockModel) next(req Request) (Step, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.steps) == 0 {
		return Step{}, false
	}
	s := m.steps[0]
	m.steps = m.steps[1:]
	return s, true
}

// Generate implements Model; emits scripted chunks then a final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Contents) == 0 {
			errCh <- core.NewError(core.KindModel, "no contents provided")
			return
		}
		step, ok := m.next(req)
		if !ok {
			last := req.Contents[len(req.Contents)-1]
			step = Step{Chunks: []string{fmt.Sprintf("Mock response to: %s", last.Text())}}
		}
		if step.Block {
			<-ctx.Done()
			errCh <- ctx.Err()
			return
		}
		if step.Err != nil {
			errCh <- step.Err
			return
		}
		var full string
		for _, c := range step.Chunks {
			full += c
			if !req.Stream {
				continue
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case respCh <- Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, c)}:
			}
		}
		parts := make([]core.Part, 0, len(step.ToolCalls)+1)
		if full != "" {
			parts = append(parts, core.TextPart{Text: full})
		}
		finish := "stop"
		for _, tc := range step.ToolCalls {
			parts = append(parts, core.FunctionCallPart{FunctionCall: tc})
			finish = "tool_calls"
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: finish,
			Usage:        &TokenUsage{PromptTokens: 1, CompletionTokens: len(step.Chunks), TotalTokens: 1 + len(step.Chunks)},
		}:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags the variant carried by an Event.
type EventType string

const (
	EventTextDelta  EventType = "text-delta"
	EventToolCall   EventType = "tool-call"
	EventToolResult EventType = "tool-result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// FinishReason explains why a turn ended.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishMaxSteps  FinishReason = "max_steps"
	FinishCancelled FinishReason = "cancelled"
	FinishTimeout   FinishReason = "timeout"
	FinishError     FinishReason = "error"
)

// Usage captures token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Completion is the payload of a Done event.
type Completion struct {
	Reason    FinishReason `json:"reason"`
	Steps     int          `json:"steps"`
	ToolCalls int          `json:"tool_calls"`
	Usage     Usage        `json:"usage"`
}

// ErrorPayload is the payload of an Error event.
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Event is one element of the ordered stream produced for a turn. Exactly the
// field matching Type is populated. Seq increases by one per event within a
// turn; after emission an Event is treated as immutable.
type Event struct {
	ID         string            `json:"id"`
	TurnID     string            `json:"turn_id"`
	Seq        int64             `json:"seq"`
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	Text       string            `json:"text,omitempty"`
	ToolCall   *FunctionCall     `json:"tool_call,omitempty"`
	ToolResult *FunctionResponse `json:"tool_result,omitempty"`
	Done       *Completion       `json:"done,omitempty"`
	Error      *ErrorPayload     `json:"error,omitempty"`
}

// NewEvent creates a bare event of the given type bound to a turn.
// Prefer the helper constructors for each variant.
func NewEvent(turnID string, typ EventType) Event {
	return Event{
		ID:        NewID(),
		TurnID:    turnID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

// NewTextDeltaEvent carries a chunk of assistant text.
func NewTextDeltaEvent(turnID, text string) Event {
	e := NewEvent(turnID, EventTextDelta)
	e.Text = text
	return e
}

// NewToolCallEvent announces a tool invocation requested by the model.
func NewToolCallEvent(turnID string, call FunctionCall) Event {
	e := NewEvent(turnID, EventToolCall)
	e.ToolCall = &call
	return e
}

// NewToolResultEvent records the outcome of a tool invocation.
func NewToolResultEvent(turnID string, resp FunctionResponse) Event {
	e := NewEvent(turnID, EventToolResult)
	e.ToolResult = &resp
	return e
}

// NewDoneEvent terminates a turn successfully (or by bound/cancellation).
func NewDoneEvent(turnID string, c Completion) Event {
	e := NewEvent(turnID, EventDone)
	e.Done = &c
	return e
}

// NewErrorEvent terminates a turn with a classified error.
func NewErrorEvent(turnID string, err error) Event {
	e := NewEvent(turnID, EventError)
	kind := KindOf(err, KindInternal)
	e.Error = &ErrorPayload{Kind: kind, Code: kind.Code(), Message: err.Error()}
	return e
}

// IsTerminal reports whether the event closes the stream.
func (e Event) IsTerminal() bool { return e.Type == EventDone || e.Type == EventError }

// NewID generates a new unique identifier for events, turns and calls.
func NewID() string { return uuid.NewString() }

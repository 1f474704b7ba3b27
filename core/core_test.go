package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/logging"
)

func TestEvent_Constructors(t *testing.T) {
	e := NewTextDeltaEvent("turn-1", "hello")
	if e.Type != EventTextDelta || e.Text != "hello" || e.TurnID != "turn-1" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewTextDeltaEvent malformed: %+v", e)
	}
	assert.False(t, e.IsTerminal())

	call := NewToolCallEvent("turn-1", FunctionCall{ID: "c1", Name: "web_search", Arguments: "{}"})
	require.NotNil(t, call.ToolCall)
	assert.Equal(t, "web_search", call.ToolCall.Name)

	res := NewToolResultEvent("turn-1", FunctionResponse{ID: "c1", Name: "web_search", Response: 42})
	require.NotNil(t, res.ToolResult)
	assert.False(t, res.ToolResult.Failed())

	done := NewDoneEvent("turn-1", Completion{Reason: FinishStop, Steps: 2})
	assert.True(t, done.IsTerminal())
	assert.Equal(t, FinishStop, done.Done.Reason)
}

func TestNewErrorEvent_UsesKind(t *testing.T) {
	ev := NewErrorEvent("t", WrapError(KindModel, "generation rejected", errors.New("safety")))
	require.NotNil(t, ev.Error)
	assert.Equal(t, KindModel, ev.Error.Kind)
	assert.Equal(t, "MODEL_ERROR", ev.Error.Code)
	assert.True(t, ev.IsTerminal())

	plain := NewErrorEvent("t", errors.New("something"))
	assert.Equal(t, KindInternal, plain.Error.Kind)
}

func TestKindOf_WalksChain(t *testing.T) {
	base := NewError(KindRateLimited, "slow down")
	wrapped := fmt.Errorf("tavily: %w", base)
	assert.Equal(t, KindRateLimited, KindOf(wrapped, KindInternal))
	assert.Equal(t, KindInternal, KindOf(errors.New("x"), KindInternal))
	assert.True(t, errors.Is(wrapped, NewError(KindRateLimited, "")))
	assert.False(t, errors.Is(wrapped, NewError(KindUnauthorized, "")))

	te := NewToolError("web_search", KindAllFailed, "all queries failed")
	assert.Equal(t, KindAllFailed, KindOf(fmt.Errorf("wrap: %w", te), KindInternal))
}

func TestErrorKind_HTTPMapping(t *testing.T) {
	cases := map[ErrorKind]int{
		KindValidation:    http.StatusBadRequest,
		KindConfiguration: http.StatusServiceUnavailable,
		KindRateLimited:   http.StatusTooManyRequests,
		KindUnauthorized:  http.StatusUnauthorized,
		KindModel:         http.StatusBadRequest,
		KindStream:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind)
	}
	assert.Equal(t, "SERVICE_UNAVAILABLE", KindConfiguration.Code())
}

func TestContentHelpers(t *testing.T) {
	c := Content{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "a"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "x"}},
		TextPart{Text: "b"},
		FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "1", Name: "x"}},
	}}
	assert.Equal(t, "ab", c.Text())
	assert.Len(t, c.FunctionCalls(), 1)
	assert.Len(t, c.FunctionResponses(), 1)
}

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.ErrorIs(t, l.Increment(), ErrStepLimitReached)
	assert.ErrorIs(t, l.Increment(), ErrStepLimitReached)
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Remaining())

	unlimited := NewStepLimiter(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestAttachment_Validate(t *testing.T) {
	ok := Attachment{Name: "a.png", ContentType: "image/png", Size: 10, URL: "https://cdn.example.com/a.png"}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.URL = "relative/path"
	assert.Equal(t, KindValidation, KindOf(bad.Validate(), KindInternal))

	bad = ok
	bad.ContentType = "application/x-not-a-real-type"
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Size = -1
	assert.Error(t, bad.Validate())
}

func TestToolContext_WithContext(t *testing.T) {
	var nilCtx context.Context
	tc := NewToolContext(nilCtx, "turn", "web", "call-1", logging.NoOpLogger{})
	require.NotNil(t, tc.Context())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	child := tc.WithContext(ctx)
	assert.Equal(t, "call-1", child.FunctionCallID())
	assert.Equal(t, "web", child.Mode())
	assert.Equal(t, ctx, child.Context())
}

func TestToolContext_NilLoggerIsNoOp(t *testing.T) {
	tc := NewToolContext(context.Background(), "turn", "web", "call-1", nil)
	require.NotNil(t, tc.Logger())
	assert.NotPanics(t, func() { tc.Logger().Info("tool.call.start") })
	assert.Equal(t, tc.Logger(), tc.WithContext(context.Background()).Logger())
}

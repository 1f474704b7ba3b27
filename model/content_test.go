package model

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
)

func TestResponsePayload(t *testing.T) {
	ok := core.FunctionResponse{ID: "1", Name: "t", Response: map[string]any{"a": 1}}
	assert.JSONEq(t, `{"a":1}`, ResponsePayload(ok))

	plain := core.FunctionResponse{ID: "2", Name: "t", Response: "raw text"}
	assert.Equal(t, "raw text", ResponsePayload(plain))

	failed := core.FunctionResponse{ID: "3", Name: "t", Error: core.NewToolError("t", core.KindUnavailable, "down")}
	assert.Contains(t, ResponsePayload(failed), `"error"`)
	assert.Contains(t, ResponsePayload(failed), "down")
}

func TestResponseObject(t *testing.T) {
	obj := ResponseObject(core.FunctionResponse{Response: map[string]any{"k": "v"}})
	assert.Equal(t, "v", obj["k"])

	wrapped := ResponseObject(core.FunctionResponse{Response: []int{1, 2}})
	assert.Equal(t, "[1,2]", wrapped["result"])
}

func TestCallArguments(t *testing.T) {
	args, err := CallArguments(core.FunctionCall{Name: "retrieve", Arguments: `{"url":"https://x.test"}`})
	require.NoError(t, err)
	assert.Equal(t, "https://x.test", args["url"])

	args, err = CallArguments(core.FunctionCall{Name: "trending_tv"})
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = CallArguments(core.FunctionCall{Name: "trending_tv", Arguments: "null"})
	require.NoError(t, err)
	assert.NotNil(t, args)

	for _, raw := range []string{`{"url":`, `[1]`, `"text"`} {
		_, err = CallArguments(core.FunctionCall{ID: "c1", Name: "retrieve", Arguments: raw})
		require.Error(t, err, raw)
		assert.Equal(t, core.KindModel, core.KindOf(err, core.KindInternal), raw)
	}
}

func TestUserText_IncludesAttachments(t *testing.T) {
	c := core.Content{Role: core.RoleUser, Parts: []core.Part{
		core.TextPart{Text: "what is this?"},
		core.FilePart{Attachment: core.Attachment{Name: "cat.png", ContentType: "image/png", URL: "https://x.test/cat.png"}},
	}}
	text := UserText(c)
	assert.Contains(t, text, "what is this?")
	assert.Contains(t, text, "cat.png (image/png): https://x.test/cat.png")
}

func TestWrapBackendError(t *testing.T) {
	assert.NoError(t, WrapBackendError("x", 500, nil))
	assert.Equal(t, context.Canceled, WrapBackendError("x", 0, context.Canceled))

	err := WrapBackendError("openai", http.StatusTooManyRequests, errors.New("429"))
	assert.Equal(t, core.KindRateLimited, core.KindOf(err, core.KindInternal))

	err = WrapBackendError("openai", 0, errors.New("broken"))
	assert.Equal(t, core.KindModel, core.KindOf(err, core.KindInternal))
}

package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/model"
)

func TestBuildMessages_ToolResultsAsUserTurn(t *testing.T) {
	contents := []core.Content{
		core.NewTextContent(core.RoleSystem, "extra rules"),
		core.NewTextContent(core.RoleUser, "find papers"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "searching"},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "academic_search", Arguments: `{"query":"llm"}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "t1", Name: "academic_search", Response: []string{"a"}}}}},
	}
	msgs, err := buildMessages(contents)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Len(t, msgs[1].Content, 2)
	assert.Equal(t, "user", string(msgs[2].Role))
	require.Len(t, msgs[2].Content, 1)
	assert.NotNil(t, msgs[2].Content[0].OfToolResult)
}

func TestBuildMessages_MalformedCallArguments(t *testing.T) {
	_, err := buildMessages([]core.Content{
		core.NewTextContent(core.RoleUser, "weather?"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "t1", Name: "get_weather_data", Arguments: `{"lat":`}},
		}},
	})
	require.Error(t, err)
	assert.Equal(t, core.KindModel, core.KindOf(err, core.KindInternal))
}

func TestExtractSystemMessage(t *testing.T) {
	blocks := extractSystemMessage(model.Request{
		Instructions: "base",
		Contents:     []core.Content{core.NewTextContent(core.RoleSystem, "extra")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "base", blocks[0].Text)
	assert.Equal(t, "extra", blocks[1].Text)
}

func TestBuildTools_RequiredNames(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{Function: model.FunctionDefinition{
		Name:        "track_flight",
		Description: "Track a flight",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"flight_number": map[string]any{"type": "string"}},
			"required":   []any{"flight_number"},
		},
	}}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "track_flight", tools[0].OfTool.Name)
	assert.Equal(t, []string{"flight_number"}, tools[0].OfTool.InputSchema.Required)
}

package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
)

func TestToSchema(t *testing.T) {
	s := toSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queries": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"topic":   map[string]any{"type": "string", "enum": []any{"general", "news"}},
			"max":     map[string]any{"type": "integer", "description": "limit"},
		},
		"required": []string{"queries"},
	})
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeArray, s.Properties["queries"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["queries"].Items.Type)
	assert.Equal(t, []string{"general", "news"}, s.Properties["topic"].Enum)
	assert.Equal(t, "limit", s.Properties["max"].Description)
	assert.Equal(t, []string{"queries"}, s.Required)
	assert.Nil(t, toSchema(nil))
}

func TestBuildHistory(t *testing.T) {
	history, last, err := buildHistory([]core.Content{
		core.NewTextContent(core.RoleSystem, "ignored"),
		core.NewTextContent(core.RoleUser, "hi"),
		{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "x", Name: "tmdb_search", Arguments: `{"query":"Dune"}`}}}},
		{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "x", Name: "tmdb_search", Response: map[string]any{"title": "Dune"}}}}},
	})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	require.Len(t, last, 1)
	fr, ok := last[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "tmdb_search", fr.Name)
	assert.Equal(t, "Dune", fr.Response["title"])
}

func TestBuildHistory_MalformedCallArguments(t *testing.T) {
	_, _, err := buildHistory([]core.Content{
		core.NewTextContent(core.RoleUser, "hi"),
		{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "x", Name: "tmdb_search", Arguments: "not json"}}}},
		core.NewTextContent(core.RoleUser, "again"),
	})
	require.Error(t, err)
	assert.Equal(t, core.KindModel, core.KindOf(err, core.KindInternal))
}

func TestNewModel_RequiresKey(t *testing.T) {
	_, err := NewModel(context.Background())
	assert.Equal(t, core.KindConfiguration, core.KindOf(err, core.KindInternal))
}

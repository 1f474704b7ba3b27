package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleSchema struct {
	A string   `json:"a" description:"Field A"`
	B *int     `json:"b" description:"Optional pointer field"`
	C int      `json:"c,omitempty" default:"5" minimum:"1" maximum:"10"`
	D []string `json:"d,omitempty" enum:"general,news"`
	E string   `json:"e,omitempty" enum:"basic,advanced" default:"basic"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.ElementsMatch(t, []any{"a"}, schema["required"])

	c := props["c"].(map[string]any)
	assert.Equal(t, "integer", c["type"])
	assert.Equal(t, int64(5), c["default"])
	assert.Equal(t, 1.0, c["minimum"])

	d := props["d"].(map[string]any)
	assert.Equal(t, "array", d["type"])
	assert.Equal(t, []any{"general", "news"}, d["items"].(map[string]any)["enum"])

	e := props["e"].(map[string]any)
	assert.Equal(t, []any{"basic", "advanced"}, e["enum"])
	assert.Equal(t, "basic", e["default"])
}

func TestCompileSchema_Validates(t *testing.T) {
	compiled, err := CompileSchema("sample", CreateSchema(sampleSchema{}))
	require.NoError(t, err)

	assert.NoError(t, compiled.Validate(map[string]any{"a": "x", "c": 3.0}))
	assert.Error(t, compiled.Validate(map[string]any{}))
	assert.Error(t, compiled.Validate(map[string]any{"a": "x", "c": 11.0}))
	assert.Error(t, compiled.Validate(map[string]any{"a": "x", "e": "deep"}))
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema("bad", map[string]any{"type": 42})
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"radius":     map[string]any{"type": "number", "default": 6000},
			"maxResults": map[string]any{"type": "array", "default": []int{10}},
			"name":       map[string]any{"type": "string"},
			"opts": map[string]any{
				"type":       "object",
				"properties": map[string]any{"deep": map[string]any{"type": "boolean", "default": true}},
			},
		},
	}
	args := ApplyDefaults(map[string]any{"radius": 100.0, "opts": map[string]any{}}, schema)
	assert.Equal(t, 100.0, args["radius"])
	assert.Equal(t, []any{10.0}, args["maxResults"])
	assert.NotContains(t, args, "name")
	assert.Equal(t, true, args["opts"].(map[string]any)["deep"])

	assert.Equal(t, 6000.0, ApplyDefaults(nil, schema)["radius"])
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Today is {{.date}}.", map[string]any{"date": "Monday, 1 January 2024"})
	require.NoError(t, err)
	assert.Equal(t, "Today is Monday, 1 January 2024.", out)

	out, err = RenderTemplate("no markers & <tags>", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers & <tags>", out)

	_, err = RenderTemplate("{{.missing}}", map[string]any{})
	assert.Error(t, err)
}

package searchmesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/config"
	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/mode"
	"github.com/hupe1980/searchmesh/model"
	"github.com/hupe1980/searchmesh/orchestrator"
)

func userTurn(m mode.ID, text string) orchestrator.Request {
	return orchestrator.Request{Mode: m, Messages: []core.Content{core.NewTextContent(core.RoleUser, text)}}
}

func TestNew_WithoutCredentials(t *testing.T) {
	logger := logging.NewSlogLogger(logging.LogLevelError, "text", false)
	sm, err := New(context.Background(), config.Default(), func(o *Options) { o.Logger = logger })
	require.NoError(t, err)
	defer sm.Close()

	assert.Len(t, sm.Tools().Names(), 15)
	assert.Len(t, sm.Modes().List(), 5)

	_, err = sm.Run(context.Background(), userTurn(mode.Fun, "hi"))
	require.Error(t, err)
	assert.Equal(t, core.KindConfiguration, core.KindOf(err, core.KindInternal))
	assert.Contains(t, err.Error(), "GOOGLE_GENERATIVE_AI_API_KEY")
}

func TestRunSync_WithModelOverride(t *testing.T) {
	m := model.NewMockModel("mock", model.Step{Chunks: []string{"Why did the gopher ", "cross the road?"}})
	sm, err := New(context.Background(), config.Default(), func(o *Options) { o.Model = m })
	require.NoError(t, err)

	events, err := sm.RunSync(context.Background(), userTurn(mode.Fun, "tell me a joke"))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, core.FinishStop, events[len(events)-1].Done.Reason)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Tools)
	assert.NotEmpty(t, reqs[0].Instructions)
}

func TestRunSync_ReturnsStreamError(t *testing.T) {
	m := model.NewMockModel("mock",
		model.Step{ToolCalls: []core.FunctionCall{{ID: "c1", Name: "retrieve", Arguments: `{"url":"ftp://example.com"}`}}},
		model.Step{Err: core.NewError(core.KindUnavailable, "backend down")},
	)
	sm, err := New(context.Background(), config.Default(), func(o *Options) { o.Model = m })
	require.NoError(t, err)

	events, err := sm.RunSync(context.Background(), userTurn(mode.Web, "read this"))
	require.Error(t, err)
	assert.Equal(t, core.KindUnavailable, core.KindOf(err, core.KindInternal))

	var retrieveErr *core.ToolError
	for _, ev := range events {
		if ev.Type == core.EventToolResult {
			retrieveErr = ev.ToolResult.Error
		}
	}
	require.NotNil(t, retrieveErr)
	assert.Equal(t, core.KindInvalidArguments, retrieveErr.Kind)
}

func TestHandler_ServesModes(t *testing.T) {
	sm, err := New(context.Background(), config.Default(), func(o *Options) { o.Model = model.NewMockModel("mock") })
	require.NoError(t, err)

	srv := httptest.NewServer(sm.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/modes")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"mode":"fun","messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "application/x-ndjson", resp2.Header.Get("Content-Type"))
}

func TestNewClients_SkipsUnconfiguredProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials.Tavily = "tv"
	cfg.Credentials.SandboxEndpoint = "http://sandbox.local"

	c := newClients(cfg, logging.NoOpLogger{})
	assert.NotNil(t, c.Tavily)
	assert.NotNil(t, c.Web)
	assert.NotNil(t, c.Images)
	assert.Nil(t, c.Exa)
	assert.Nil(t, c.Sandbox, "sandbox needs endpoint and key")
}

package exa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/provider"
)

func TestSearchAndContents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "transformers", body["query"])
		assert.Equal(t, "research paper", body["category"])
		assert.Equal(t, float64(20), body["numResults"])
		assert.Equal(t, "Abstract of the Paper", body["contents"].(map[string]any)["summary"].(map[string]any)["query"])
		_, _ = w.Write([]byte(`{"results":[{"id":"1","url":"https://arxiv.org/abs/1","title":"Attention","summary":"Summary: x"}]}`))
	}))
	defer srv.Close()

	c := New("k", provider.WithBaseURL(srv.URL))
	resp, err := c.SearchAndContents(context.Background(), "transformers", "Abstract of the Paper", SearchOptions{
		Type:       "auto",
		NumResults: 20,
		Category:   "research paper",
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Summary: x", resp.Results[0].Summary)
}

func TestSearch_NoContents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasContents := body["contents"]
		assert.False(t, hasContents)
		assert.Equal(t, []any{"youtube.com"}, body["includeDomains"])
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	resp, err := New("k", provider.WithBaseURL(srv.URL)).Search(context.Background(), "go", SearchOptions{
		Type:           "keyword",
		NumResults:     5,
		IncludeDomains: []string{"youtube.com"},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New("k", provider.WithBaseURL(srv.URL)).Search(context.Background(), "go", SearchOptions{})
	assert.Equal(t, core.KindRateLimited, core.KindOf(err, core.KindInternal))
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
)

func TestClient_GetInjectsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "x", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := NewClient("test", WithBaseURL(srv.URL+"/"), WithQueryParam("key", "secret"), WithHeader("Authorization", "Bearer tok"))
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Get(context.Background(), "/v1/items", url.Values{"q": {"x"}}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, "test", c.Name())
}

func TestClient_PostJSONAndRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte("echo:" + body["url"]))
	}))
	defer srv.Close()

	c := NewClient("test", WithBaseURL(srv.URL))
	var out string
	require.NoError(t, c.Post(context.Background(), "captions", map[string]string{"url": "u"}, &out))
	assert.Equal(t, "echo:u", out)
}

func TestClient_StatusMapping(t *testing.T) {
	cases := map[int]core.ErrorKind{
		http.StatusUnauthorized:        core.KindUnauthorized,
		http.StatusForbidden:           core.KindUnauthorized,
		http.StatusTooManyRequests:     core.KindRateLimited,
		http.StatusInternalServerError: core.KindUnavailable,
		http.StatusBadGateway:          core.KindUnavailable,
		http.StatusNotFound:            core.KindProviderFailure,
	}
	for status, kind := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", status)
		}))
		c := NewClient("test", WithBaseURL(srv.URL))
		err := c.Get(context.Background(), "/", nil, &struct{}{})
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, kind, core.KindOf(err, core.KindInternal), "status %d", status)
		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, status, pe.Status)
	}
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	err := NewClient("test", WithBaseURL(srv.URL)).Get(context.Background(), "/", nil, &map[string]any{})
	assert.Equal(t, core.KindMalformed, core.KindOf(err, core.KindInternal))
}

func TestClient_NetworkErrorHidesCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	err := NewClient("test", WithBaseURL(base), WithQueryParam("key", "topsecret")).Get(context.Background(), "/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, core.KindUnavailable, core.KindOf(err, core.KindInternal))
	assert.NotContains(t, err.Error(), "topsecret")
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewClient("test", WithBaseURL(srv.URL)).Get(ctx, "/", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := NewClient("test", WithBaseURL(srv.URL), WithRateLimit(20, 1))
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Get(context.Background(), "/", nil, nil))
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

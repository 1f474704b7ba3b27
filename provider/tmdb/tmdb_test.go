package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/provider"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("tok", provider.WithBaseURL(srv.URL))
}

func TestSearchMulti(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/multi", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "dune", r.URL.Query().Get("query"))
		assert.Equal(t, "true", r.URL.Query().Get("include_adult"))
		_, _ = w.Write([]byte(`{"results":[{"id":1,"media_type":"person"},{"id":438631,"media_type":"movie","title":"Dune"}]}`))
	})

	res, err := c.SearchMulti(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, MediaMovie, res[1].MediaType)
	assert.Equal(t, 438631, res[1].ID)
}

func TestDetailsCreditsTrending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		switch r.URL.Path {
		case "/tv/7":
			_, _ = w.Write([]byte(`{"id":7,"name":"Show","poster_path":"/p.jpg","backdrop_path":null}`))
		case "/tv/7/credits":
			_, _ = w.Write([]byte(`{"cast":[{"id":1,"name":"A","profile_path":"/a.jpg"}],"crew":[{"id":2,"name":"D","job":"Director"}]}`))
		case "/trending/movie/day":
			_, _ = w.Write([]byte(`{"results":[{"id":9,"poster_path":"/m.jpg"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	d, err := c.Details(ctx, MediaTV, 7)
	require.NoError(t, err)
	d = d.WithImageURLs()
	assert.Equal(t, ImageBaseURL+"/p.jpg", d["poster_path"])
	assert.Nil(t, d["backdrop_path"])

	credits, err := c.Credits(ctx, MediaTV, 7)
	require.NoError(t, err)
	assert.Equal(t, "Director", credits.Crew[0].Job)

	trending, err := c.Trending(ctx, MediaMovie)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, float64(9), trending[0]["id"])
}

func TestImageURL(t *testing.T) {
	assert.Nil(t, ImageURL(""))
	assert.Equal(t, ImageBaseURL+"/x.jpg", *ImageURL("/x.jpg"))
}

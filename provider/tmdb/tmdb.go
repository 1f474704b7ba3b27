// Package tmdb is a client for The Movie Database v3 API.
package tmdb

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hupe1980/searchmesh/provider"
)

const (
	// DefaultBaseURL is the public v3 endpoint.
	DefaultBaseURL = "https://api.themoviedb.org/3"
	// ImageBaseURL prefixes the relative poster, backdrop and profile paths.
	ImageBaseURL = "https://image.tmdb.org/t/p/original"
)

// MediaType distinguishes movies from TV shows.
type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaTV     MediaType = "tv"
	MediaPerson MediaType = "person"
)

// SearchResult is one multi-search hit.
type SearchResult struct {
	ID        int       `json:"id"`
	MediaType MediaType `json:"media_type"`
	Title     string    `json:"title,omitempty"`
	Name      string    `json:"name,omitempty"`
}

// Record is a movie or show document. TMDB documents are wide; they are
// passed through as decoded JSON.
type Record map[string]any

// Person is a cast or crew member.
type Person struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	Job         string `json:"job,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// Credits are the cast and crew of a title.
type Credits struct {
	Cast []Person `json:"cast"`
	Crew []Person `json:"crew"`
}

// Client calls the TMDB API with a v4 read access token.
type Client struct {
	http *provider.Client
}

// New creates a client authenticated with the bearer token.
func New(token string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(DefaultBaseURL),
		provider.WithHeader("Authorization", "Bearer "+token),
	}, optFns...)
	return &Client{http: provider.NewClient("tmdb", opts...)}
}

var english = url.Values{"language": {"en-US"}}

// SearchMulti searches movies, shows and people in one call.
func (c *Client) SearchMulti(ctx context.Context, query string) ([]SearchResult, error) {
	q := url.Values{
		"query":         {query},
		"include_adult": {"true"},
		"language":      {"en-US"},
		"page":          {"1"},
	}
	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.http.Get(ctx, "/search/multi", q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Details returns the full document of a movie or show.
func (c *Client) Details(ctx context.Context, media MediaType, id int) (Record, error) {
	var out Record
	if err := c.http.Get(ctx, fmt.Sprintf("/%s/%d", media, id), english, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Credits returns cast and crew of a movie or show.
func (c *Client) Credits(ctx context.Context, media MediaType, id int) (*Credits, error) {
	var out Credits
	if err := c.http.Get(ctx, fmt.Sprintf("/%s/%d/credits", media, id), english, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trending returns today's trending titles of the given media type.
func (c *Client) Trending(ctx context.Context, media MediaType) ([]Record, error) {
	var out struct {
		Results []Record `json:"results"`
	}
	if err := c.http.Get(ctx, fmt.Sprintf("/trending/%s/day", media), english, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ImageURL turns a relative image path into an absolute URL. An empty path
// yields nil so the JSON rendering is null.
func ImageURL(path string) *string {
	if path == "" {
		return nil
	}
	u := ImageBaseURL + path
	return &u
}

// WithImageURLs rewrites poster_path and backdrop_path of r in place.
func (r Record) WithImageURLs() Record {
	for _, key := range []string{"poster_path", "backdrop_path"} {
		p, _ := r[key].(string)
		if u := ImageURL(p); u != nil {
			r[key] = *u
		} else {
			r[key] = nil
		}
	}
	return r
}

// Package exa is a client for the Exa neural search API.
package exa

import (
	"context"

	"github.com/hupe1980/searchmesh/provider"
)

// DefaultBaseURL is the public Exa endpoint.
const DefaultBaseURL = "https://api.exa.ai"

// SearchOptions tune a search.
type SearchOptions struct {
	Type           string   `json:"type,omitempty"` // auto, keyword, neural
	NumResults     int      `json:"numResults,omitempty"`
	Category       string   `json:"category,omitempty"`
	IncludeDomains []string `json:"includeDomains,omitempty"`
	ExcludeDomains []string `json:"excludeDomains,omitempty"`
}

// Result is one search hit. Summary is only set by SearchAndContents.
type Result struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Author        string  `json:"author,omitempty"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Score         float64 `json:"score,omitempty"`
	Summary       string  `json:"summary,omitempty"`
}

// Response is a search response.
type Response struct {
	Results []Result `json:"results"`
}

// Client calls the Exa API.
type Client struct {
	http *provider.Client
}

// New creates a client authenticated with apiKey.
func New(apiKey string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(DefaultBaseURL),
		provider.WithHeader("x-api-key", apiKey),
	}, optFns...)
	return &Client{http: provider.NewClient("exa", opts...)}
}

type searchRequest struct {
	Query string `json:"query"`
	SearchOptions
	Contents *contents `json:"contents,omitempty"`
}

type contents struct {
	Summary summary `json:"summary"`
}

type summary struct {
	Query string `json:"query,omitempty"`
}

// Search returns links only.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return c.search(ctx, searchRequest{Query: query, SearchOptions: opts})
}

// SearchAndContents returns links with an LLM summary of each page, steered
// by summaryQuery.
func (c *Client) SearchAndContents(ctx context.Context, query, summaryQuery string, opts SearchOptions) (*Response, error) {
	return c.search(ctx, searchRequest{
		Query:         query,
		SearchOptions: opts,
		Contents:      &contents{Summary: summary{Query: summaryQuery}},
	})
}

func (c *Client) search(ctx context.Context, req searchRequest) (*Response, error) {
	var out Response
	if err := c.http.Post(ctx, "/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

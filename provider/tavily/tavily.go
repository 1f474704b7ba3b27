// Package tavily is a client for the Tavily web search API.
package tavily

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hupe1980/searchmesh/provider"
)

// DefaultBaseURL is the public Tavily endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// Topic selects the search vertical.
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
)

// Depth selects the search depth.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// SearchOptions tune one search call.
type SearchOptions struct {
	Topic                    Topic
	Days                     int
	MaxResults               int
	SearchDepth              Depth
	IncludeAnswer            bool
	IncludeImages            bool
	IncludeImageDescriptions bool
	ExcludeDomains           []string
}

// Result is one web hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	RawContent    string  `json:"raw_content,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

// Image is an image hit. Description is empty unless descriptions were
// requested.
type Image struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts both the bare URL form and the object form.
func (i *Image) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = Image{URL: s}
		return nil
	}
	type plain Image
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Image(p)
	return nil
}

// Response is the search response.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Images  []Image  `json:"images"`
	Results []Result `json:"results"`
}

// Client calls the Tavily API.
type Client struct {
	apiKey string
	http   *provider.Client
}

// New creates a client authenticated with apiKey.
func New(apiKey string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){provider.WithBaseURL(DefaultBaseURL)}, optFns...)
	return &Client{apiKey: apiKey, http: provider.NewClient("tavily", opts...)}
}

type searchRequest struct {
	APIKey                   string   `json:"api_key"`
	Query                    string   `json:"query"`
	Topic                    Topic    `json:"topic,omitempty"`
	Days                     int      `json:"days,omitempty"`
	MaxResults               int      `json:"max_results,omitempty"`
	SearchDepth              Depth    `json:"search_depth,omitempty"`
	IncludeAnswer            bool     `json:"include_answer"`
	IncludeImages            bool     `json:"include_images"`
	IncludeImageDescriptions bool     `json:"include_image_descriptions"`
	ExcludeDomains           []string `json:"exclude_domains,omitempty"`
}

// Search runs one query.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	body := searchRequest{
		APIKey:                   c.apiKey,
		Query:                    query,
		Topic:                    opts.Topic,
		Days:                     opts.Days,
		MaxResults:               opts.MaxResults,
		SearchDepth:              opts.SearchDepth,
		IncludeAnswer:            opts.IncludeAnswer,
		IncludeImages:            opts.IncludeImages,
		IncludeImageDescriptions: opts.IncludeImageDescriptions,
		ExcludeDomains:           opts.ExcludeDomains,
	}
	var out Response
	if err := c.http.Do(ctx, provider.Request{Method: http.MethodPost, Path: "/search", Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

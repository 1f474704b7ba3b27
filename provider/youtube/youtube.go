// Package youtube is a client for the video metadata service that resolves a
// YouTube URL into details, captions and chapter timestamps.
package youtube

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/hupe1980/searchmesh/provider"
)

var videoIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&?/]+)`)

// VideoID extracts the video id from a watch, short or embed URL.
func VideoID(url string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(url)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Details is the oEmbed-like metadata of a video.
type Details struct {
	Title           string `json:"title,omitempty"`
	AuthorName      string `json:"author_name,omitempty"`
	AuthorURL       string `json:"author_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Type            string `json:"type,omitempty"`
	ProviderName    string `json:"provider_name,omitempty"`
	ProviderURL     string `json:"provider_url,omitempty"`
	ThumbnailWidth  int    `json:"thumbnail_width,omitempty"`
	ThumbnailHeight int    `json:"thumbnail_height,omitempty"`
}

// Client calls the metadata service.
type Client struct {
	http *provider.Client
}

// New creates a client for the service at endpoint.
func New(endpoint string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){provider.WithBaseURL(endpoint)}, optFns...)
	return &Client{http: provider.NewClient("youtube", opts...)}
}

type videoRequest struct {
	URL string `json:"url"`
}

// VideoData returns the details of the video at url.
func (c *Client) VideoData(ctx context.Context, url string) (*Details, error) {
	var out Details
	if err := c.http.Post(ctx, "/video-data", videoRequest{URL: url}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Captions returns the plain text transcript of the video at url.
func (c *Client) Captions(ctx context.Context, url string) (string, error) {
	var out string
	if err := c.http.Post(ctx, "/video-captions", videoRequest{URL: url}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Timestamps returns the chapter markers of the video at url. The service
// answers with a JSON array whose shape is passed through untouched.
func (c *Client) Timestamps(ctx context.Context, url string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.http.Post(ctx, "/video-timestamps", videoRequest{URL: url}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

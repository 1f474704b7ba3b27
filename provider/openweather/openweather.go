// Package openweather is a client for the OpenWeather 5 day / 3 hour
// forecast API.
package openweather

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hupe1980/searchmesh/provider"
)

// DefaultBaseURL is the public endpoint.
const DefaultBaseURL = "https://api.openweathermap.org"

// Forecast is the raw forecast document; it is handed to the model as is.
type Forecast map[string]any

// Client calls the forecast API.
type Client struct {
	http *provider.Client
}

// New creates a client authenticated with apiKey (sent as appid).
func New(apiKey string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(DefaultBaseURL),
		provider.WithQueryParam("appid", apiKey),
	}, optFns...)
	return &Client{http: provider.NewClient("openweather", opts...)}
}

// Forecast returns the forecast for the given coordinates.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (Forecast, error) {
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	var out Forecast
	if err := c.http.Get(ctx, "/data/2.5/forecast", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

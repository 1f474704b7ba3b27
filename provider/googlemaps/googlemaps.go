// Package googlemaps is a client for the Google Maps Geocoding and Time Zone
// web services.
package googlemaps

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/provider"
)

// DefaultBaseURL is the public endpoint.
const DefaultBaseURL = "https://maps.googleapis.com"

const name = "googlemaps"

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Viewport is the recommended bounding box of a result.
type Viewport struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

// Geometry is the position of a geocoding result.
type Geometry struct {
	Location     LatLng   `json:"location"`
	LocationType string   `json:"location_type,omitempty"`
	Viewport     Viewport `json:"viewport"`
}

// AddressComponent is one part of a structured address.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// GeocodeResult is one forward geocoding match.
type GeocodeResult struct {
	PlaceID           string             `json:"place_id"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          Geometry           `json:"geometry"`
	Types             []string           `json:"types"`
	AddressComponents []AddressComponent `json:"address_components"`
}

// Client calls the Maps web services.
type Client struct {
	http *provider.Client
}

// New creates a client authenticated with apiKey.
func New(apiKey string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(DefaultBaseURL),
		provider.WithQueryParam("key", apiKey),
	}, optFns...)
	return &Client{http: provider.NewClient(name, opts...)}
}

// GeocodeForward resolves an address or place name. No match yields an
// empty slice and no error.
func (c *Client) GeocodeForward(ctx context.Context, address string) ([]GeocodeResult, error) {
	var out struct {
		Status       string          `json:"status"`
		ErrorMessage string          `json:"error_message"`
		Results      []GeocodeResult `json:"results"`
	}
	if err := c.http.Get(ctx, "/maps/api/geocode/json", url.Values{"address": {address}}, &out); err != nil {
		return nil, err
	}
	if err := statusError(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// TimeZone returns the IANA zone id at the given coordinates and instant.
func (c *Client) TimeZone(ctx context.Context, lat, lng float64, at time.Time) (string, error) {
	q := url.Values{
		"location":  {fmt.Sprintf("%s,%s", formatCoord(lat), formatCoord(lng))},
		"timestamp": {strconv.FormatInt(at.Unix(), 10)},
	}
	var out struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		TimeZoneID   string `json:"timeZoneId"`
	}
	if err := c.http.Get(ctx, "/maps/api/timezone/json", q, &out); err != nil {
		return "", err
	}
	if err := statusError(out.Status, out.ErrorMessage); err != nil {
		return "", err
	}
	return out.TimeZoneID, nil
}

// statusError maps the in-band status field of a 200 response.
func statusError(status, message string) error {
	var kind core.ErrorKind
	switch status {
	case "", "OK", "ZERO_RESULTS":
		return nil
	case "REQUEST_DENIED":
		kind = core.KindUnauthorized
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		kind = core.KindRateLimited
	case "UNKNOWN_ERROR":
		kind = core.KindUnavailable
	default:
		kind = core.KindProviderFailure
	}
	if message == "" {
		message = status
	}
	return provider.NewError(name, kind, message)
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

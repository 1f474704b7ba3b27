// Package mapbox is a client for the Mapbox geocoding APIs: v6 reverse
// geocoding and v5 place (POI) search.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/hupe1980/searchmesh/provider"
)

// DefaultBaseURL is the public endpoint.
const DefaultBaseURL = "https://api.mapbox.com"

// Geometry is a GeoJSON point.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureProperties are the v6 properties used by callers. Context and
// Coordinates are passed through untouched.
type FeatureProperties struct {
	Name          string          `json:"name"`
	NamePreferred string          `json:"name_preferred,omitempty"`
	FullAddress   string          `json:"full_address,omitempty"`
	FeatureType   string          `json:"feature_type,omitempty"`
	Context       json.RawMessage `json:"context,omitempty"`
	Coordinates   json.RawMessage `json:"coordinates,omitempty"`
	BBox          []float64       `json:"bbox,omitempty"`
}

// Feature is one v6 geocoding feature.
type Feature struct {
	ID         string            `json:"id"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// Place is one v5 place search feature. Center is [lng, lat].
type Place struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	PlaceName string     `json:"place_name"`
	Center    [2]float64 `json:"center"`
}

// Lng returns the longitude of the place.
func (p Place) Lng() float64 { return p.Center[0] }

// Lat returns the latitude of the place.
func (p Place) Lat() float64 { return p.Center[1] }

// Client calls the Mapbox APIs.
type Client struct {
	http *provider.Client
}

// New creates a client authenticated with the access token.
func New(token string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(DefaultBaseURL),
		provider.WithQueryParam("access_token", token),
	}, optFns...)
	return &Client{http: provider.NewClient("mapbox", opts...)}
}

// GeocodeReverse returns the features at the given coordinates.
func (c *Client) GeocodeReverse(ctx context.Context, lat, lng float64) ([]Feature, error) {
	q := url.Values{
		"longitude": {formatCoord(lng)},
		"latitude":  {formatCoord(lat)},
	}
	var out struct {
		Features []Feature `json:"features"`
	}
	if err := c.http.Get(ctx, "/search/geocode/v6/reverse", q, &out); err != nil {
		return nil, err
	}
	return out.Features, nil
}

// Proximity biases a place search towards a point.
type Proximity struct {
	Lat, Lng float64
}

// SearchPOI runs a points-of-interest text search, biased towards near when
// it is non-nil.
func (c *Client) SearchPOI(ctx context.Context, query string, near *Proximity) ([]Place, error) {
	q := url.Values{"types": {"poi"}}
	if near != nil {
		q.Set("proximity", fmt.Sprintf("%s,%s", formatCoord(near.Lng), formatCoord(near.Lat)))
	}
	var out struct {
		Features []Place `json:"features"`
	}
	path := "/geocoding/v5/mapbox.places/" + url.PathEscape(query) + ".json"
	if err := c.http.Get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out.Features, nil
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

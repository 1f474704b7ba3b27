// Package tripadvisor is a client for the Tripadvisor Content API.
package tripadvisor

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/hupe1980/searchmesh/provider"
)

// DefaultBaseURL is the public Content API endpoint.
const DefaultBaseURL = "https://api.content.tripadvisor.com/api/v1"

// DefaultOrigin is sent as Origin and Referer; the API checks them against
// the domain restriction configured for the key.
const DefaultOrigin = "https://mplx.local"

// Address is the postal address of a location.
type Address struct {
	AddressString string `json:"address_string"`
}

// NearbyLocation is one hit of a nearby search. Numeric fields arrive as
// strings.
type NearbyLocation struct {
	LocationID string  `json:"location_id"`
	Name       string  `json:"name"`
	Distance   string  `json:"distance"`
	Bearing    string  `json:"bearing"`
	Address    Address `json:"address_obj"`
}

// DayTime is one end of an opening period. Time is "HHMM".
type DayTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

// Period is one weekly opening period. Close is nil for periods without a
// close time.
type Period struct {
	Open  DayTime  `json:"open"`
	Close *DayTime `json:"close,omitempty"`
}

// Hours are the opening hours of a location.
type Hours struct {
	Periods     []Period `json:"periods"`
	WeekdayText []string `json:"weekday_text"`
}

// Named is a labelled reference (cuisine, source).
type Named struct {
	Name string `json:"name"`
}

// Details is the detail document of a location.
type Details struct {
	LocationID  string  `json:"location_id"`
	Name        string  `json:"name"`
	Latitude    string  `json:"latitude"`
	Longitude   string  `json:"longitude"`
	Rating      string  `json:"rating"`
	NumReviews  string  `json:"num_reviews"`
	PriceLevel  string  `json:"price_level"`
	Description string  `json:"description"`
	Phone       string  `json:"phone"`
	Website     string  `json:"website"`
	Cuisine     []Named `json:"cuisine"`
	Hours       *Hours  `json:"hours,omitempty"`
	Source      *Named  `json:"source,omitempty"`
}

// ImageRef is one size variant of a photo.
type ImageRef struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Photo is a location photo with its size variants.
type Photo struct {
	Caption string `json:"caption"`
	Images  struct {
		Thumbnail *ImageRef `json:"thumbnail,omitempty"`
		Small     *ImageRef `json:"small,omitempty"`
		Medium    *ImageRef `json:"medium,omitempty"`
		Large     *ImageRef `json:"large,omitempty"`
		Original  *ImageRef `json:"original,omitempty"`
	} `json:"images"`
}

// Client calls the Content API.
type Client struct {
	http *provider.Client
}

// New creates a client authenticated with apiKey.
func New(apiKey string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(DefaultBaseURL),
		provider.WithQueryParam("key", apiKey),
		provider.WithHeader("Origin", DefaultOrigin),
		provider.WithHeader("Referer", DefaultOrigin),
	}, optFns...)
	return &Client{http: provider.NewClient("tripadvisor", opts...)}
}

// NearbyQuery describes a nearby search.
type NearbyQuery struct {
	Lat, Lng float64
	Category string // hotels, restaurants, attractions, geos
	Radius   float64
	// RadiusUnit is km, mi or m; empty lets the API default apply.
	RadiusUnit string
}

// NearbySearch returns up to ten locations near a point.
func (c *Client) NearbySearch(ctx context.Context, nq NearbyQuery) ([]NearbyLocation, error) {
	q := url.Values{
		"latLong":  {fmt.Sprintf("%s,%s", formatCoord(nq.Lat), formatCoord(nq.Lng))},
		"language": {"en"},
	}
	if nq.Category != "" {
		q.Set("category", nq.Category)
	}
	if nq.Radius > 0 {
		q.Set("radius", formatCoord(nq.Radius))
	}
	if nq.RadiusUnit != "" {
		q.Set("radiusUnit", nq.RadiusUnit)
	}
	var out struct {
		Data []NearbyLocation `json:"data"`
	}
	if err := c.http.Get(ctx, "/location/nearby_search", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Details returns the detail document of a location.
func (c *Client) Details(ctx context.Context, locationID string) (*Details, error) {
	q := url.Values{"language": {"en"}, "currency": {"USD"}}
	var out Details
	if err := c.http.Get(ctx, "/location/"+url.PathEscape(locationID)+"/details", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Photos returns the photos of a location.
func (c *Client) Photos(ctx context.Context, locationID string) ([]Photo, error) {
	var out struct {
		Data []Photo `json:"data"`
	}
	if err := c.http.Get(ctx, "/location/"+url.PathEscape(locationID)+"/photos", url.Values{"language": {"en"}}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

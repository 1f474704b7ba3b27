// Package aviationstack is a client for the aviationstack real-time flights
// API.
package aviationstack

import (
	"context"
	"net/url"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/provider"
)

// DefaultBaseURL is the public endpoint.
const DefaultBaseURL = "https://api.aviationstack.com/v1"

const name = "aviationstack"

// Endpoint is the departure or arrival leg of a flight.
type Endpoint struct {
	Airport   string `json:"airport"`
	Timezone  string `json:"timezone"`
	IATA      string `json:"iata"`
	ICAO      string `json:"icao"`
	Terminal  string `json:"terminal"`
	Gate      string `json:"gate"`
	Delay     *int   `json:"delay"`
	Scheduled string `json:"scheduled"`
	Estimated string `json:"estimated"`
	Actual    string `json:"actual"`
}

// Flight is one flight record.
type Flight struct {
	FlightDate   string   `json:"flight_date"`
	FlightStatus string   `json:"flight_status"`
	Departure    Endpoint `json:"departure"`
	Arrival      Endpoint `json:"arrival"`
	Airline      struct {
		Name string `json:"name"`
		IATA string `json:"iata"`
		ICAO string `json:"icao"`
	} `json:"airline"`
	Flight struct {
		Number string `json:"number"`
		IATA   string `json:"iata"`
		ICAO   string `json:"icao"`
	} `json:"flight"`
}

// Response is the flights response.
type Response struct {
	Pagination struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Count  int `json:"count"`
		Total  int `json:"total"`
	} `json:"pagination"`
	Data []Flight `json:"data"`
}

// Client calls the flights API.
type Client struct {
	http *provider.Client
}

// New creates a client authenticated with the access key.
func New(accessKey string, optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithBaseURL(DefaultBaseURL),
		provider.WithQueryParam("access_key", accessKey),
	}, optFns...)
	return &Client{http: provider.NewClient(name, opts...)}
}

// Flights looks up flights by IATA flight number (e.g. "LH400").
func (c *Client) Flights(ctx context.Context, flightIATA string) (*Response, error) {
	var out struct {
		Response
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := c.http.Get(ctx, "/flights", url.Values{"flight_iata": {flightIATA}}, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		kind := core.KindProviderFailure
		switch out.Error.Code {
		case "invalid_access_key", "missing_access_key", "inactive_user":
			kind = core.KindUnauthorized
		case "usage_limit_reached", "rate_limit_reached":
			kind = core.KindRateLimited
		}
		return nil, provider.NewError(name, kind, out.Error.Message)
	}
	return &out.Response, nil
}

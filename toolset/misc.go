package toolset

import (
	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/provider/webpage"
	"github.com/hupe1980/searchmesh/tool"
)

type weatherArgs struct {
	Lat float64 `json:"lat" minimum:"-90" maximum:"90" description:"The latitude of the location."`
	Lon float64 `json:"lon" minimum:"-180" maximum:"180" description:"The longitude of the location."`
}

func (ts *Toolset) weather() tool.Tool {
	return tool.NewTypedTool(GetWeatherData, "Get the weather data for the given coordinates.",
		func(tc *core.ToolContext, args weatherArgs) (any, error) {
			if ts.c.Weather == nil {
				return nil, notConfigured(GetWeatherData, "OPENWEATHER_API_KEY")
			}
			return ts.c.Weather.Forecast(tc.Context(), args.Lat, args.Lon)
		})
}

type flightArgs struct {
	FlightNumber string `json:"flight_number" description:"The flight number to track"`
}

func (ts *Toolset) trackFlight() tool.Tool {
	return tool.NewTypedTool(TrackFlight, "Track flight information and status",
		func(tc *core.ToolContext, args flightArgs) (any, error) {
			if ts.c.Flights == nil {
				return nil, notConfigured(TrackFlight, "AVIATION_STACK_API_KEY")
			}
			return ts.c.Flights.Flights(tc.Context(), args.FlightNumber)
		})
}

type retrieveArgs struct {
	URL string `json:"url" description:"The URL to retrieve the information from."`
}

func (ts *Toolset) retrieve() tool.Tool {
	return tool.NewTypedTool(Retrieve, "Retrieve the information from a URL.",
		func(tc *core.ToolContext, args retrieveArgs) (any, error) {
			if ts.c.Web == nil {
				return nil, notConfigured(Retrieve, "webpage retriever")
			}
			page, err := ts.c.Web.Retrieve(tc.Context(), args.URL)
			if err != nil {
				return nil, err
			}
			return map[string][]*webpage.Page{"results": {page}}, nil
		})
}

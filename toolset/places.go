package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/searchmesh/availability"
	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/provider/googlemaps"
	"github.com/hupe1980/searchmesh/provider/mapbox"
	"github.com/hupe1980/searchmesh/provider/tripadvisor"
	"github.com/hupe1980/searchmesh/tool"
)

const (
	metersPerDegree     = 111320.0
	defaultNearbyRadius = 6000
	fallbackTimezone    = "UTC"
)

type findPlaceArgs struct {
	Query       string    `json:"query" description:"The search query for forward geocoding"`
	Coordinates []float64 `json:"coordinates" description:"Array of [latitude, longitude] for reverse geocoding"`
}

// Feature is a normalized geocoding feature from either provider.
type Feature struct {
	ID                string                        `json:"id"`
	Name              string                        `json:"name"`
	FormattedAddress  string                        `json:"formatted_address"`
	Geometry          mapbox.Geometry               `json:"geometry"`
	FeatureType       string                        `json:"feature_type"`
	AddressComponents []googlemaps.AddressComponent `json:"address_components,omitempty"`
	Viewport          *googlemaps.Viewport          `json:"viewport,omitempty"`
	PlaceID           string                        `json:"place_id,omitempty"`
	Context           json.RawMessage               `json:"context,omitempty"`
	Coordinates       json.RawMessage               `json:"coordinates,omitempty"`
	BBox              []float64                     `json:"bbox,omitempty"`
	Source            string                        `json:"source"`
}

// FindPlaceOutput is the find_place result.
type FindPlaceOutput struct {
	Features          []Feature `json:"features"`
	GoogleAttribution string    `json:"google_attribution"`
	MapboxAttribution string    `json:"mapbox_attribution"`
}

func fromGoogle(r googlemaps.GeocodeResult) Feature {
	f := Feature{
		ID:                r.PlaceID,
		Name:              strings.TrimSpace(strings.SplitN(r.FormattedAddress, ",", 2)[0]),
		FormattedAddress:  r.FormattedAddress,
		Geometry:          mapbox.Geometry{Type: "Point", Coordinates: []float64{r.Geometry.Location.Lng, r.Geometry.Location.Lat}},
		AddressComponents: r.AddressComponents,
		PlaceID:           r.PlaceID,
		Source:            "google",
	}
	if len(r.Types) > 0 {
		f.FeatureType = r.Types[0]
	}
	vp := r.Geometry.Viewport
	f.Viewport = &vp
	return f
}

func fromMapbox(m mapbox.Feature) Feature {
	name := m.Properties.NamePreferred
	if name == "" {
		name = m.Properties.Name
	}
	return Feature{
		ID:               m.ID,
		Name:             name,
		FormattedAddress: m.Properties.FullAddress,
		Geometry:         m.Geometry,
		FeatureType:      m.Properties.FeatureType,
		Context:          m.Properties.Context,
		Coordinates:      m.Properties.Coordinates,
		BBox:             m.Properties.BBox,
		Source:           "mapbox",
	}
}

func (ts *Toolset) findPlace() tool.Tool {
	return tool.NewTypedTool(FindPlace,
		"Find a place using Google Maps API for forward geocoding and Mapbox for reverse geocoding.",
		func(tc *core.ToolContext, args findPlaceArgs) (any, error) {
			if ts.c.GoogleMaps == nil {
				return nil, notConfigured(FindPlace, "GOOGLE_MAPS_API_KEY")
			}
			if ts.c.Mapbox == nil {
				return nil, notConfigured(FindPlace, "MAPBOX_ACCESS_TOKEN")
			}
			if len(args.Coordinates) != 2 {
				return nil, invalidArgs(FindPlace, "coordinates must be [latitude, longitude]")
			}
			lat, lng := args.Coordinates[0], args.Coordinates[1]

			results, err := runTasks(tc.Context(), ts, FindPlace,
				func(ctx context.Context) (any, error) { return ts.c.GoogleMaps.GeocodeForward(ctx, args.Query) },
				func(ctx context.Context) (any, error) { return ts.c.Mapbox.GeocodeReverse(ctx, lat, lng) },
			)
			if err != nil {
				return nil, fmt.Errorf("geocoding failed: %w", err)
			}

			out := FindPlaceOutput{
				Features:          []Feature{},
				GoogleAttribution: "Powered by Google Maps Platform",
				MapboxAttribution: "Powered by Mapbox",
			}
			if r := results[0]; r.OK() {
				for _, g := range r.Value.([]googlemaps.GeocodeResult) {
					out.Features = append(out.Features, fromGoogle(g))
				}
			} else {
				tc.Logger().Warn("tool.find_place.forward_failed", "error", r.Err.Error())
			}
			if r := results[1]; r.OK() {
				for _, m := range r.Value.([]mapbox.Feature) {
					out.Features = append(out.Features, fromMapbox(m))
				}
			} else {
				tc.Logger().Warn("tool.find_place.reverse_failed", "error", r.Err.Error())
			}
			return out, nil
		})
}

type textSearchArgs struct {
	Query    string  `json:"query" description:"The search query (e.g., '123 main street')."`
	Location string  `json:"location,omitempty" description:"The location to center the search as 'latitude,longitude' (e.g., '42.3675294,-71.186966')."`
	Radius   float64 `json:"radius,omitempty" minimum:"0" maximum:"50000" description:"The radius of the search area in meters (max 50000)."`
}

// TextSearchPlace is one text_search hit.
type TextSearchPlace struct {
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location googlemaps.LatLng `json:"location"`
	} `json:"geometry"`
}

// parseLatLng parses "lat,lng".
func parseLatLng(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("location %q is not 'latitude,longitude'", s)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q", s)
	}
	if lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q", s)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("location %q is out of range", s)
	}
	return lat, lng, nil
}

// withinRadius applies the planar degree-distance filter: radius meters are
// converted to degrees at 111320 m per degree.
func withinRadius(p mapbox.Place, center mapbox.Proximity, radius float64) bool {
	d := math.Hypot(p.Lng()-center.Lng, p.Lat()-center.Lat)
	return d <= radius/metersPerDegree
}

func (ts *Toolset) textSearch() tool.Tool {
	return tool.NewTypedTool(TextSearch, "Perform a text-based search for places using Mapbox API.",
		func(tc *core.ToolContext, args textSearchArgs) (any, error) {
			if ts.c.Mapbox == nil {
				return nil, notConfigured(TextSearch, "MAPBOX_ACCESS_TOKEN")
			}
			var near *mapbox.Proximity
			if args.Location != "" {
				lat, lng, err := parseLatLng(args.Location)
				if err != nil {
					return nil, invalidArgs(TextSearch, err.Error())
				}
				near = &mapbox.Proximity{Lat: lat, Lng: lng}
			}

			places, err := ts.c.Mapbox.SearchPOI(tc.Context(), args.Query, near)
			if err != nil {
				return nil, err
			}

			results := make([]TextSearchPlace, 0, len(places))
			for _, p := range places {
				if near != nil && args.Radius > 0 && !withinRadius(p, *near, args.Radius) {
					continue
				}
				var r TextSearchPlace
				r.Name = p.Text
				r.FormattedAddress = p.PlaceName
				r.Geometry.Location = googlemaps.LatLng{Lat: p.Lat(), Lng: p.Lng()}
				results = append(results, r)
			}
			return map[string]any{"results": results}, nil
		})
}

type nearbyArgs struct {
	Location  string  `json:"location" description:"The location name given by user."`
	Latitude  float64 `json:"latitude" minimum:"-90" maximum:"90" description:"The latitude of the location."`
	Longitude float64 `json:"longitude" minimum:"-180" maximum:"180" description:"The longitude of the location."`
	Type      string  `json:"type" description:"The type of place to search for (restaurants, hotels, attractions, geos)."`
	Radius    float64 `json:"radius,omitempty" default:"6000" minimum:"1" maximum:"50000" description:"The radius in meters (max 50000, default 6000)."`
}

// Photo is a place photo with its size variants.
type Photo struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Small     string `json:"small,omitempty"`
	Medium    string `json:"medium"`
	Large     string `json:"large,omitempty"`
	Original  string `json:"original,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// NearbyPlace is one nearby_search hit.
type NearbyPlace struct {
	Name          string               `json:"name"`
	Location      googlemaps.LatLng    `json:"location"`
	Timezone      string               `json:"timezone"`
	PlaceID       string               `json:"place_id"`
	Vicinity      string               `json:"vicinity"`
	Distance      float64              `json:"distance"`
	Bearing       string               `json:"bearing"`
	Type          string               `json:"type"`
	Rating        float64              `json:"rating"`
	PriceLevel    string               `json:"price_level"`
	Cuisine       string               `json:"cuisine"`
	Description   string               `json:"description"`
	Phone         string               `json:"phone"`
	Website       string               `json:"website"`
	ReviewsCount  int                  `json:"reviews_count"`
	IsClosed      bool                 `json:"is_closed"`
	Hours         []string             `json:"hours"`
	NextOpenClose *string              `json:"next_open_close"`
	NextDay       int                  `json:"next_day"`
	Periods       []tripadvisor.Period `json:"periods"`
	Photos        []Photo              `json:"photos"`
	Source        string               `json:"source"`
}

// NearbyOutput is the nearby_search result.
type NearbyOutput struct {
	Results []NearbyPlace     `json:"results"`
	Center  googlemaps.LatLng `json:"center"`
}

// truncate6 cuts v to six decimals without rounding.
func truncate6(v float64) float64 {
	return math.Trunc(v*1e6) / 1e6
}

func (ts *Toolset) nearbySearch() tool.Tool {
	return tool.NewTypedTool(NearbySearch,
		"Search for nearby places, such as restaurants or hotels based on the details given.",
		func(tc *core.ToolContext, args nearbyArgs) (any, error) {
			if ts.c.TripAdvisor == nil {
				return nil, notConfigured(NearbySearch, "TRIPADVISOR_API_KEY")
			}
			if args.Radius <= 0 {
				args.Radius = defaultNearbyRadius
			}
			ctx := tc.Context()
			center := ts.resolveCenter(tc, args)

			nearby, err := ts.c.TripAdvisor.NearbySearch(ctx, tripadvisor.NearbyQuery{
				Lat:      center.Lat,
				Lng:      center.Lng,
				Category: args.Type,
				Radius:   args.Radius,
			})
			if err != nil {
				return nil, fmt.Errorf("nearby search failed: %w", err)
			}
			out := NearbyOutput{Results: []NearbyPlace{}, Center: center}
			if len(nearby) == 0 {
				return out, nil
			}

			results, _ := run(ctx, ts, NearbySearch, nearby, func(ctx context.Context, loc tripadvisor.NearbyLocation) (NearbyPlace, error) {
				return ts.placeDetails(ctx, tc, loc, args.Type, center)
			})
			for i, r := range results {
				if r.Err != nil {
					tc.Logger().Debug("tool.nearby_search.place_skipped", "name", nearby[i].Name, "error", r.Err.Error())
					continue
				}
				out.Results = append(out.Results, r.Value)
			}
			sort.SliceStable(out.Results, func(i, j int) bool {
				return out.Results[i].Distance < out.Results[j].Distance
			})
			return out, nil
		})
}

// resolveCenter prefers the geocoded position of the named location over the
// model supplied coordinates.
func (ts *Toolset) resolveCenter(tc *core.ToolContext, args nearbyArgs) googlemaps.LatLng {
	center := googlemaps.LatLng{Lat: args.Latitude, Lng: args.Longitude}
	if ts.c.GoogleMaps == nil || strings.TrimSpace(args.Location) == "" {
		return center
	}
	geo, err := ts.c.GoogleMaps.GeocodeForward(tc.Context(), args.Location)
	if err != nil {
		tc.Logger().Warn("tool.nearby_search.geocode_failed", "error", err.Error())
		return center
	}
	if len(geo) == 0 {
		return center
	}
	loc := geo[0].Geometry.Location
	return googlemaps.LatLng{Lat: truncate6(loc.Lat), Lng: truncate6(loc.Lng)}
}

// placeDetails builds one result. A details failure drops the place; photo
// and time zone failures degrade to no photos and UTC.
func (ts *Toolset) placeDetails(ctx context.Context, tc *core.ToolContext, loc tripadvisor.NearbyLocation, category string, center googlemaps.LatLng) (NearbyPlace, error) {
	if loc.LocationID == "" {
		return NearbyPlace{}, fmt.Errorf("place %q has no location id", loc.Name)
	}
	details, err := ts.c.TripAdvisor.Details(ctx, loc.LocationID)
	if err != nil {
		return NearbyPlace{}, err
	}

	position := googlemaps.LatLng{
		Lat: parseFloatOr(details.Latitude, center.Lat),
		Lng: parseFloatOr(details.Longitude, center.Lng),
	}
	now := ts.opts.Now()

	results, _ := runTasks(ctx, ts, "nearby_place",
		func(ctx context.Context) (any, error) { return ts.c.TripAdvisor.Photos(ctx, loc.LocationID) },
		func(ctx context.Context) (any, error) {
			if ts.c.GoogleMaps == nil {
				return fallbackTimezone, nil
			}
			return ts.c.GoogleMaps.TimeZone(ctx, position.Lat, position.Lng, now)
		},
	)

	photos := []Photo{}
	if r := results[0]; r.OK() {
		photos = convertPhotos(r.Value.([]tripadvisor.Photo))
	} else {
		tc.Logger().Debug("tool.nearby_search.photos_failed", "name", loc.Name, "error", r.Err.Error())
	}
	timezone := fallbackTimezone
	if r := results[1]; r.OK() && r.Value.(string) != "" {
		timezone = r.Value.(string)
	}

	place := NearbyPlace{
		Name:         loc.Name,
		Location:     position,
		Timezone:     timezone,
		PlaceID:      loc.LocationID,
		Vicinity:     loc.Address.AddressString,
		Distance:     parseFloatOr(loc.Distance, 0),
		Bearing:      loc.Bearing,
		Type:         category,
		Rating:       parseFloatOr(details.Rating, 0),
		PriceLevel:   details.PriceLevel,
		Description:  details.Description,
		Phone:        details.Phone,
		Website:      details.Website,
		ReviewsCount: int(parseFloatOr(details.NumReviews, 0)),
		Hours:        []string{},
		Periods:      []tripadvisor.Period{},
		Photos:       photos,
		Source:       "TripAdvisor",
	}
	if place.Name == "" {
		place.Name = "Unnamed Place"
	}
	if len(details.Cuisine) > 0 {
		place.Cuisine = details.Cuisine[0].Name
	}
	if details.Source != nil && details.Source.Name != "" {
		place.Source = details.Source.Name
	}

	local := availability.LocalInstant(now, timezone)
	place.IsClosed = true
	place.NextDay = local.Day
	if details.Hours != nil {
		if details.Hours.WeekdayText != nil {
			place.Hours = details.Hours.WeekdayText
		}
		if details.Hours.Periods != nil {
			place.Periods = details.Hours.Periods
		}
		state := availability.Resolve(toPeriods(tc, details.Hours.Periods), local)
		place.IsClosed = !state.Open
		if state.Next != nil {
			hhmm := state.Next.HHMM()
			place.NextOpenClose = &hhmm
			place.NextDay = state.Next.Day
		}
	}
	return place, nil
}

// toPeriods converts provider periods, skipping malformed entries.
func toPeriods(tc *core.ToolContext, in []tripadvisor.Period) []availability.Period {
	out := make([]availability.Period, 0, len(in))
	for _, p := range in {
		closeDay, closeTime := p.Open.Day, ""
		if p.Close != nil {
			closeDay, closeTime = p.Close.Day, p.Close.Time
		}
		period, err := availability.NewPeriod(p.Open.Day, p.Open.Time, closeDay, closeTime)
		if err != nil {
			tc.Logger().Debug("tool.nearby_search.period_skipped", "error", err.Error())
			continue
		}
		out = append(out, period)
	}
	return out
}

func convertPhotos(in []tripadvisor.Photo) []Photo {
	out := make([]Photo, 0, len(in))
	for _, p := range in {
		if p.Images.Medium == nil || p.Images.Medium.URL == "" {
			continue
		}
		out = append(out, Photo{
			Thumbnail: imageURL(p.Images.Thumbnail),
			Small:     imageURL(p.Images.Small),
			Medium:    p.Images.Medium.URL,
			Large:     imageURL(p.Images.Large),
			Original:  imageURL(p.Images.Original),
			Caption:   p.Caption,
		})
	}
	return out
}

func imageURL(ref *tripadvisor.ImageRef) string {
	if ref == nil {
		return ""
	}
	return ref.URL
}

func parseFloatOr(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return def
}

package toolset

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/provider"
	"github.com/hupe1980/searchmesh/provider/exa"
	"github.com/hupe1980/searchmesh/provider/googlemaps"
	"github.com/hupe1980/searchmesh/provider/mapbox"
	"github.com/hupe1980/searchmesh/provider/sandbox"
	"github.com/hupe1980/searchmesh/provider/tavily"
	"github.com/hupe1980/searchmesh/provider/tmdb"
	"github.com/hupe1980/searchmesh/provider/tripadvisor"
	"github.com/hupe1980/searchmesh/provider/youtube"
	"github.com/hupe1980/searchmesh/tool"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newRegistry(t *testing.T, c Clients, optFns ...func(o *Options)) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry(nil)
	require.NoError(t, New(c, optFns...).Register(reg))
	return reg
}

func execute(reg *tool.Registry, name, args string) core.FunctionResponse {
	tc := core.NewToolContext(context.Background(), "turn", "web", "fc-"+name, logging.NoOpLogger{})
	return reg.Execute(context.Background(), tc, name, args)
}

func TestCatalogueRegistersAllTools(t *testing.T) {
	reg := newRegistry(t, Clients{})
	assert.Equal(t, []string{
		AcademicSearch, CodeInterpreter, CurrencyConverter, FindPlace, GetWeatherData,
		NearbySearch, Retrieve, StockChart, TextSearch, TMDBSearch, TrackFlight,
		TrendingMovies, TrendingTV, WebSearch, YouTubeSearch,
	}, reg.Names())

	resp := execute(reg, TrackFlight, `{"flight_number":"LH400"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindConfiguration, resp.Error.Kind)
}

func TestPick(t *testing.T) {
	assert.Equal(t, 3, pick([]int{0, 3}, 1, 10))
	assert.Equal(t, 5, pick([]int{5}, 2, 10))
	assert.Equal(t, 10, pick([]int{0}, 0, 10))
	assert.Equal(t, "news", pick([]string{"news"}, 1, "general"))
	assert.Equal(t, "general", pick(nil, 0, "general"))
}

func TestWebSearch(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/good.png":
			w.Header().Set("Content-Type", "image/png")
		case r.Method == http.MethodHead:
			w.Header().Set("Content-Type", "text/html")
		case r.URL.Path == "/search":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch body["query"] {
			case "broken":
				http.Error(w, "boom", http.StatusInternalServerError)
			case "headlines":
				assert.Equal(t, "news", body["topic"])
				assert.Equal(t, float64(7), body["days"])
				assert.Equal(t, float64(3), body["max_results"])
				assert.Equal(t, []any{"spam.com"}, body["exclude_domains"])
				_, _ = w.Write([]byte(`{"results":[{"url":"https://n","title":"N","content":"c","published_date":"2024-05-01"}],
					"images":[{"url":"` + base + `/good.png","description":"good"},{"url":"` + base + `/good.png"},{"url":"` + base + `/page","description":"page"}]}`))
			default:
				assert.Equal(t, "general", body["topic"])
				assert.Nil(t, body["days"])
				// zero slots fall back to index 0
				assert.Equal(t, float64(3), body["max_results"])
				_, _ = w.Write([]byte(`{"results":[{"url":"https://g","title":"G","content":"c","published_date":"2024-05-01"}],"images":[]}`))
			}
		}
	})
	reg := newRegistry(t, Clients{Tavily: tavily.New("k", provider.WithBaseURL(srv.URL))})

	resp := execute(reg, WebSearch, `{"queries":["headlines","broken","golang"],"maxResults":[3,0,0],"topics":["news","general","general"],"exclude_domains":["spam.com"]}`)
	require.Nil(t, resp.Error)
	out := resp.Response.(WebSearchOutput)
	require.Len(t, out.Searches, 3)

	news := out.Searches[0]
	assert.Equal(t, "headlines", news.Query)
	assert.Equal(t, "2024-05-01", news.Results[0].PublishedDate)
	require.Len(t, news.Images, 1)
	assert.Equal(t, "good", news.Images[0].Description)

	assert.Equal(t, "broken", out.Searches[1].Query)
	assert.NotEmpty(t, out.Searches[1].Error)
	assert.Empty(t, out.Searches[1].Results)

	general := out.Searches[2]
	assert.Empty(t, general.Error)
	assert.Empty(t, general.Results[0].PublishedDate, "published date only for news")
}

func TestWebSearch_AllFailed(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	reg := newRegistry(t, Clients{Tavily: tavily.New("k", provider.WithBaseURL(srv.URL))})

	resp := execute(reg, WebSearch, `{"queries":["a","b"]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindAllFailed, resp.Error.Kind)

	resp = execute(reg, WebSearch, `{"queries":[]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArguments, resp.Error.Kind)
}

func TestCleanPapers(t *testing.T) {
	in := []exa.Result{
		{URL: "u1", Title: "Attention Is All You Need [pdf]", Summary: "Summary: transformers"},
		{URL: "u1", Title: "dup", Summary: "dup"},
		{URL: "u2", Title: "No summary"},
		{URL: "u3", Title: "Plain [v2] title", Summary: "summary:   lower"},
	}
	got := cleanPapers(in, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "Attention Is All You Need", got[0].Title)
	assert.Equal(t, "transformers", got[0].Summary)
	assert.Equal(t, "Plain [v2] title", got[1].Title)
	assert.Equal(t, "lower", got[1].Summary)

	assert.Len(t, cleanPapers(in, 1), 1)
}

func TestYouTubeSearch(t *testing.T) {
	var detailCalls int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			_, _ = w.Write([]byte(`{"results":[
				{"url":"https://www.youtube.com/watch?v=v1"},
				{"url":"https://www.youtube.com/@channel"},
				{"url":"https://youtu.be/v2"}]}`))
		case "/video-data":
			atomic.AddInt32(&detailCalls, 1)
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if strings.Contains(body["url"], "v2") {
				http.Error(w, "gone", http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"title":"First"}`))
		case "/video-captions":
			_, _ = w.Write([]byte("words"))
		case "/video-timestamps":
			_, _ = w.Write([]byte(`["0:00 start"]`))
		}
	})
	reg := newRegistry(t, Clients{
		Exa:     exa.New("k", provider.WithBaseURL(srv.URL)),
		YouTube: youtube.New(srv.URL),
	})

	resp := execute(reg, YouTubeSearch, `{"query":"gophercon"}`)
	require.Nil(t, resp.Error)
	videos := resp.Response.(map[string]any)["results"].([]Video)
	require.Len(t, videos, 2)
	assert.Equal(t, "v1", videos[0].VideoID)
	require.NotNil(t, videos[0].Details)
	assert.Equal(t, "First", videos[0].Details.Title)
	assert.Equal(t, "words", videos[0].Captions)
	assert.Equal(t, "v2", videos[1].VideoID)
	assert.Nil(t, videos[1].Details)
	assert.Equal(t, "words", videos[1].Captions)
	assert.Equal(t, int32(2), atomic.LoadInt32(&detailCalls))
}

func TestTMDBSearch(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/multi":
			if r.URL.Query().Get("query") == "nobody" {
				_, _ = w.Write([]byte(`{"results":[{"id":1,"media_type":"person"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"results":[{"id":1,"media_type":"person"},{"id":27205,"media_type":"movie"}]}`))
		case "/movie/27205":
			_, _ = w.Write([]byte(`{"id":27205,"title":"Inception","poster_path":"/p.jpg"}`))
		case "/movie/27205/credits":
			_, _ = w.Write([]byte(`{"cast":[{"id":1,"name":"A","profile_path":"/a.jpg"},{"id":2,"name":"B"},{"id":3,"name":"C"},{"id":4,"name":"D"},{"id":5,"name":"E"},{"id":6,"name":"F"}],
				"crew":[{"id":9,"name":"Writer W","job":"Writer"},{"id":10,"name":"Chris","job":"Director"},{"id":11,"name":"S","job":"Screenplay"}]}`))
		}
	})
	reg := newRegistry(t, Clients{TMDB: tmdb.New("tok", provider.WithBaseURL(srv.URL))})

	resp := execute(reg, TMDBSearch, `{"query":"inception"}`)
	require.Nil(t, resp.Error)
	record := resp.Response.(map[string]any)["result"].(tmdb.Record)
	assert.Equal(t, "Inception", record["title"])
	assert.Equal(t, tmdb.MediaMovie, record["media_type"])
	assert.Equal(t, tmdb.ImageBaseURL+"/p.jpg", record["poster_path"])
	assert.Nil(t, record["backdrop_path"])

	credits := record["credits"].(MediaCredits)
	require.Len(t, credits.Cast, 5)
	assert.Equal(t, tmdb.ImageBaseURL+"/a.jpg", *credits.Cast[0].ProfilePath)
	assert.Nil(t, credits.Cast[1].ProfilePath)
	assert.Equal(t, "Chris", credits.Director)
	assert.Equal(t, "Writer W", credits.Writer)

	resp = execute(reg, TMDBSearch, `{"query":"nobody"}`)
	require.Nil(t, resp.Error)
	assert.Nil(t, resp.Response.(map[string]any)["result"])
}

func TestFindPlace(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/maps/api/geocode/json":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"place_id":"g1","formatted_address":"Brandenburger Tor, Berlin",
				"geometry":{"location":{"lat":52.5163,"lng":13.3777}},"types":["landmark"]}]}`))
		case "/search/geocode/v6/reverse":
			http.Error(w, "down", http.StatusServiceUnavailable)
		}
	})
	reg := newRegistry(t, Clients{
		GoogleMaps: googlemaps.New("k", provider.WithBaseURL(srv.URL)),
		Mapbox:     mapbox.New("t", provider.WithBaseURL(srv.URL)),
	})

	resp := execute(reg, FindPlace, `{"query":"Brandenburger Tor","coordinates":[52.5,13.4]}`)
	require.Nil(t, resp.Error)
	out := resp.Response.(FindPlaceOutput)
	require.Len(t, out.Features, 1)
	f := out.Features[0]
	assert.Equal(t, "Brandenburger Tor", f.Name)
	assert.Equal(t, []float64{13.3777, 52.5163}, f.Geometry.Coordinates)
	assert.Equal(t, "landmark", f.FeatureType)
	assert.Equal(t, "google", f.Source)

	resp = execute(reg, FindPlace, `{"query":"x","coordinates":[1]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArguments, resp.Error.Kind)
}

func TestTextSearch_RadiusFilter(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-71.18,42.36", r.URL.Query().Get("proximity"))
		_, _ = w.Write([]byte(`{"features":[
			{"text":"Near","place_name":"Near, MA","center":[-71.181,42.361]},
			{"text":"Far","place_name":"Far, MA","center":[-71.5,42.6]}]}`))
	})
	reg := newRegistry(t, Clients{Mapbox: mapbox.New("t", provider.WithBaseURL(srv.URL))})

	resp := execute(reg, TextSearch, `{"query":"cafe","location":"42.36,-71.18","radius":1000}`)
	require.Nil(t, resp.Error)
	results := resp.Response.(map[string]any)["results"].([]TextSearchPlace)
	require.Len(t, results, 1)
	assert.Equal(t, "Near", results[0].Name)
	assert.Equal(t, 42.361, results[0].Geometry.Location.Lat)

	resp = execute(reg, TextSearch, `{"query":"cafe","location":"north"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArguments, resp.Error.Kind)
}

func TestNearbySearch(t *testing.T) {
	// Monday 10:00 UTC
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/maps/api/geocode/json":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":48.8583701,"lng":2.2944813}}}]}`))
		case "/maps/api/timezone/json":
			assert.Equal(t, "1704103200", r.URL.Query().Get("timestamp"))
			_, _ = w.Write([]byte(`{"status":"OK","timeZoneId":"UTC"}`))
		case "/location/nearby_search":
			assert.Equal(t, "48.85837,2.294481", r.URL.Query().Get("latLong"))
			assert.Equal(t, "6000", r.URL.Query().Get("radius"))
			assert.Equal(t, "restaurants", r.URL.Query().Get("category"))
			_, _ = w.Write([]byte(`{"data":[
				{"location_id":"1","name":"Open Bistro","distance":"0.5"},
				{"location_id":"2","name":"Broken","distance":"0.1"},
				{"location_id":"3","name":"No Hours","distance":"0.2"},
				{"name":"No ID","distance":"0.05"}]}`))
		case "/location/1/details":
			_, _ = w.Write([]byte(`{"latitude":"48.86","longitude":"2.29","rating":"4.5","num_reviews":"10","cuisine":[{"name":"French"}],
				"hours":{"weekday_text":["Monday: 09:00 - 17:00"],"periods":[{"open":{"day":1,"time":"0900"},"close":{"day":1,"time":"1700"}}]}}`))
		case "/location/2/details":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "/location/3/details":
			_, _ = w.Write([]byte(`{"latitude":"48.85","longitude":"2.30"}`))
		case "/location/1/photos":
			_, _ = w.Write([]byte(`{"data":[{"caption":"c","images":{"medium":{"url":"https://m"},"large":{"url":"https://l"}}},{"images":{"small":{"url":"https://s"}}}]}`))
		case "/location/3/photos":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
	reg := newRegistry(t, Clients{
		GoogleMaps:  googlemaps.New("k", provider.WithBaseURL(srv.URL)),
		TripAdvisor: tripadvisor.New("k", provider.WithBaseURL(srv.URL)),
	}, func(o *Options) { o.Now = func() time.Time { return now } })

	resp := execute(reg, NearbySearch, `{"location":"Eiffel Tower","latitude":1,"longitude":2,"type":"restaurants"}`)
	require.Nil(t, resp.Error)
	out := resp.Response.(NearbyOutput)
	assert.Equal(t, googlemaps.LatLng{Lat: 48.85837, Lng: 2.294481}, out.Center)
	require.Len(t, out.Results, 2)

	noHours := out.Results[0]
	assert.Equal(t, "No Hours", noHours.Name)
	assert.True(t, noHours.IsClosed)
	assert.Nil(t, noHours.NextOpenClose)
	assert.Equal(t, 1, noHours.NextDay)
	assert.Empty(t, noHours.Photos)
	assert.Equal(t, "TripAdvisor", noHours.Source)

	open := out.Results[1]
	assert.Equal(t, "Open Bistro", open.Name)
	assert.False(t, open.IsClosed)
	require.NotNil(t, open.NextOpenClose)
	assert.Equal(t, "1700", *open.NextOpenClose)
	assert.Equal(t, 1, open.NextDay)
	assert.Equal(t, "UTC", open.Timezone)
	assert.Equal(t, 4.5, open.Rating)
	assert.Equal(t, 10, open.ReviewsCount)
	assert.Equal(t, "French", open.Cuisine)
	require.Len(t, open.Photos, 1)
	assert.Equal(t, "https://l", open.Photos[0].Large)
	assert.Equal(t, googlemaps.LatLng{Lat: 48.86, Lng: 2.29}, open.Location)
}

func TestCodeInterpreter(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"stdout":["hi"],"stderr":[],"results":[{"text":"42","chart":{"type":"bar"}}]}`))
	})
	reg := newRegistry(t, Clients{Sandbox: sandbox.New(srv.URL, "k", "tpl")})

	resp := execute(reg, StockChart, `{"title":"t","code":"6*7","icon":"stock"}`)
	require.Nil(t, resp.Error)
	out := resp.Response.(CodeOutput)
	assert.Equal(t, "42\nhi", out.Message)
	assert.JSONEq(t, `{"type":"bar"}`, string(out.Chart))

	resp = execute(reg, CodeInterpreter, `{"title":"t","code":"1","icon":"rocket"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArguments, resp.Error.Kind)
}

func TestCurrencyConverter(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Contains(t, body["code"], "from_currency = 'USD'")
		assert.Contains(t, body["code"], "to_currency = 'EUR'")
		_, _ = w.Write([]byte(`{"stdout":[],"stderr":[],"results":[{"text":"0.5"}]}`))
	})
	reg := newRegistry(t, Clients{Sandbox: sandbox.New(srv.URL, "k", "tpl")})

	resp := execute(reg, CurrencyConverter, `{"from":"usd","to":"EUR","amount":10}`)
	require.Nil(t, resp.Error)
	out := resp.Response.(CurrencyOutput)
	assert.Equal(t, "0.5", out.Rate)
	require.NotNil(t, out.Converted)
	assert.Equal(t, 5.0, *out.Converted)

	resp = execute(reg, CurrencyConverter, `{"from":"US'); import os #","to":"EUR"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArguments, resp.Error.Kind)
}

// Package toolset builds the catalogue of tools the model can call: web,
// academic and video search, media metadata, places, weather, flights, page
// retrieval and sandboxed code execution. Each tool is a tool.FunctionTool
// backed by one or more provider clients.
package toolset

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/fanout"
	"github.com/hupe1980/searchmesh/imagecheck"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/provider/aviationstack"
	"github.com/hupe1980/searchmesh/provider/exa"
	"github.com/hupe1980/searchmesh/provider/googlemaps"
	"github.com/hupe1980/searchmesh/provider/mapbox"
	"github.com/hupe1980/searchmesh/provider/openweather"
	"github.com/hupe1980/searchmesh/provider/sandbox"
	"github.com/hupe1980/searchmesh/provider/tavily"
	"github.com/hupe1980/searchmesh/provider/tmdb"
	"github.com/hupe1980/searchmesh/provider/tripadvisor"
	"github.com/hupe1980/searchmesh/provider/webpage"
	"github.com/hupe1980/searchmesh/provider/youtube"
	"github.com/hupe1980/searchmesh/tool"
)

// Tool names.
const (
	WebSearch         = "web_search"
	AcademicSearch    = "academic_search"
	YouTubeSearch     = "youtube_search"
	TMDBSearch        = "tmdb_search"
	TrendingMovies    = "trending_movies"
	TrendingTV        = "trending_tv"
	GetWeatherData    = "get_weather_data"
	FindPlace         = "find_place"
	TextSearch        = "text_search"
	NearbySearch      = "nearby_search"
	TrackFlight       = "track_flight"
	Retrieve          = "retrieve"
	CodeInterpreter   = "code_interpreter"
	StockChart        = "stock_chart"
	CurrencyConverter = "currency_converter"
)

// Clients are the provider clients the tools call. A nil client leaves its
// tools registered but failing with a ConfigurationError when called.
type Clients struct {
	Tavily      *tavily.Client
	Exa         *exa.Client
	YouTube     *youtube.Client
	TMDB        *tmdb.Client
	Weather     *openweather.Client
	GoogleMaps  *googlemaps.Client
	Mapbox      *mapbox.Client
	TripAdvisor *tripadvisor.Client
	Flights     *aviationstack.Client
	Sandbox     *sandbox.Client
	Web         *webpage.Client
	Images      *imagecheck.Validator
}

// Options tune the catalogue.
type Options struct {
	// MaxFanOut caps the concurrency of fan-out inside one tool call.
	MaxFanOut int
	// Now is the clock used for opening hours and time zone lookups.
	Now    func() time.Time
	Logger logging.Logger
}

// Toolset holds the clients shared by all tools.
type Toolset struct {
	c    Clients
	opts Options
}

// New creates the catalogue.
func New(c Clients, optFns ...func(o *Options)) *Toolset {
	opts := Options{
		MaxFanOut: fanout.DefaultMaxParallel,
		Now:       time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if c.Images == nil {
		c.Images = imagecheck.New(func(o *imagecheck.Options) {
			o.MaxParallel = opts.MaxFanOut
			o.Logger = opts.Logger
		})
	}
	return &Toolset{c: c, opts: opts}
}

// Tools returns every tool of the catalogue.
func (ts *Toolset) Tools() []tool.Tool {
	return []tool.Tool{
		ts.webSearch(),
		ts.academicSearch(),
		ts.youtubeSearch(),
		ts.tmdbSearch(),
		ts.trending(TrendingMovies, "Get trending movies from TMDB", tmdb.MediaMovie),
		ts.trending(TrendingTV, "Get trending TV shows from TMDB", tmdb.MediaTV),
		ts.weather(),
		ts.findPlace(),
		ts.textSearch(),
		ts.nearbySearch(),
		ts.trackFlight(),
		ts.retrieve(),
		ts.codeInterpreter(),
		ts.stockChart(),
		ts.currencyConverter(),
	}
}

// Register adds every tool to reg.
func (ts *Toolset) Register(reg *tool.Registry) error {
	return reg.Register(ts.Tools()...)
}

// run is fanout.Run with the catalogue's fan-out bound.
func run[I, R any](ctx context.Context, ts *Toolset, name string, items []I, op func(context.Context, I) (R, error)) ([]fanout.Result[R], error) {
	return fanout.Run(ctx, items, op,
		fanout.WithMaxParallel(ts.opts.MaxFanOut),
		fanout.WithName(name),
		fanout.WithLogger(ts.opts.Logger),
	)
}

// task is one heterogeneous sub-operation of a tool call.
type task func(ctx context.Context) (any, error)

// runTasks runs unrelated lookups of one tool call concurrently.
func runTasks(ctx context.Context, ts *Toolset, name string, tasks ...task) ([]fanout.Result[any], error) {
	return run(ctx, ts, name, tasks, func(ctx context.Context, t task) (any, error) { return t(ctx) })
}

func notConfigured(toolName, dependency string) error {
	return core.NewError(core.KindConfiguration, fmt.Sprintf("%s: %s is not configured", toolName, dependency))
}

func invalidArgs(toolName, msg string) error {
	return tool.NewToolError(toolName, core.KindInvalidArguments, msg)
}

// Package searchmesh provides a high-level façade that wires the provider
// clients, the tool catalogue, the mode registry, a model backend and the
// turn orchestrator from a single config.Config. Most applications interact
// with this package by:
//  1. Loading a configuration (config.Load) and creating a SearchMesh via New
//  2. Running turns asynchronously (Run) or synchronously (RunSync), or
//     serving them over HTTP (Handler)
//  3. Calling Close on shutdown
package searchmesh

import (
	"context"
	"net/http"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/searchmesh/config"
	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/imagecheck"
	"github.com/hupe1980/searchmesh/logging"
	"github.com/hupe1980/searchmesh/mode"
	"github.com/hupe1980/searchmesh/model"
	"github.com/hupe1980/searchmesh/model/anthropic"
	"github.com/hupe1980/searchmesh/model/gemini"
	"github.com/hupe1980/searchmesh/model/openai"
	"github.com/hupe1980/searchmesh/orchestrator"
	"github.com/hupe1980/searchmesh/provider"
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
	"github.com/hupe1980/searchmesh/server"
	"github.com/hupe1980/searchmesh/tool"
	"github.com/hupe1980/searchmesh/toolset"
)

// Options configures the SearchMesh instance.
type Options struct {
	// Model overrides the backend selected by the configuration.
	Model model.Model
	// Logger (defaults to NoOp logger if nil). A *logging.MeshLogger is
	// scoped per component.
	Logger logging.Logger
}

// SearchMesh is the wired object graph of the service.
type SearchMesh struct {
	cfg          *config.Config
	logger       logging.Logger
	tools        *tool.Registry
	modes        *mode.Registry
	orchestrator *orchestrator.Orchestrator
	closers      []func() error
}

// New wires a SearchMesh from cfg. Providers without credentials are left
// unconfigured; turns in modes that need them fail with a ConfigurationError.
func New(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*SearchMesh, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	sm := &SearchMesh{cfg: cfg, logger: opts.Logger}

	clients := newClients(cfg, component(opts.Logger, "provider"))
	ts := toolset.New(clients, func(o *toolset.Options) {
		o.MaxFanOut = cfg.Orchestrator.MaxFanOut
		o.Logger = component(opts.Logger, "toolset")
	})

	sm.tools = tool.NewRegistry(component(opts.Logger, "tool"))
	if err := ts.Register(sm.tools); err != nil {
		return nil, err
	}

	modes, err := mode.NewRegistry(nil)
	if err != nil {
		return nil, err
	}
	if err := modes.Validate(sm.tools); err != nil {
		return nil, err
	}
	sm.modes = modes

	m := opts.Model
	if m == nil {
		if m, err = sm.newModel(ctx); err != nil {
			return nil, err
		}
	}

	temperature := cfg.Model.Temperature
	sm.orchestrator = orchestrator.New(m, modes, sm.tools, func(o *orchestrator.Options) {
		o.MaxSteps = cfg.Orchestrator.MaxSteps
		o.TurnTimeout = cfg.Orchestrator.TurnTimeout
		o.MaxParallelTools = cfg.Orchestrator.MaxParallelTools
		o.Temperature = &temperature
		o.Logger = component(opts.Logger, "orchestrator")
		if opts.Model == nil {
			o.Credentials = cfg
		}
	})

	opts.Logger.Info("searchmesh.wired",
		"model_provider", m.Info().Provider,
		"model", m.Info().Name,
		"tools", len(sm.tools.Names()),
		"unconfigured_credentials", cfg.Missing(sm.tools.Names()),
	)
	return sm, nil
}

// Run starts an asynchronous turn. See orchestrator.Orchestrator.Run.
func (sm *SearchMesh) Run(ctx context.Context, req orchestrator.Request) (<-chan core.Event, error) {
	return sm.orchestrator.Run(ctx, req)
}

// RunSync drains a turn and returns its events. A terminal Error event is
// also returned as an error.
func (sm *SearchMesh) RunSync(ctx context.Context, req orchestrator.Request) ([]core.Event, error) {
	ch, err := sm.orchestrator.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	var events []core.Event
	for ev := range ch {
		events = append(events, ev)
	}
	if n := len(events); n > 0 && events[n-1].Type == core.EventError {
		p := events[n-1].Error
		return events, core.NewError(p.Kind, p.Message)
	}
	return events, nil
}

// Handler returns the HTTP API serving this instance.
func (sm *SearchMesh) Handler() http.Handler { return sm.Server().Handler() }

// Server returns an HTTP server bound to this instance.
func (sm *SearchMesh) Server() *server.Server {
	return server.New(sm.orchestrator, sm.modes, func(o *server.Options) {
		o.Logger = component(sm.logger, "server")
	})
}

// Tools returns the tool registry.
func (sm *SearchMesh) Tools() *tool.Registry { return sm.tools }

// Modes returns the mode registry.
func (sm *SearchMesh) Modes() *mode.Registry { return sm.modes }

// Close releases backend clients.
func (sm *SearchMesh) Close() error {
	var first error
	for _, c := range sm.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func component(l logging.Logger, name string) logging.Logger {
	if ml, ok := l.(*logging.MeshLogger); ok {
		return ml.WithComponent(name)
	}
	return l
}

// newClients creates a client for every provider whose credentials are
// present. Tools backed by a missing client report a ConfigurationError.
func newClients(cfg *config.Config, logger logging.Logger) toolset.Clients {
	creds := cfg.Credentials
	common := []func(o *provider.Options){
		provider.WithTimeout(cfg.Providers.Timeout),
		provider.WithLogger(logger),
	}
	if cfg.Providers.RateLimit > 0 {
		common = append(common, provider.WithRateLimit(cfg.Providers.RateLimit, cfg.Providers.Burst))
	}

	c := toolset.Clients{
		Web: webpage.New(common...),
		Images: imagecheck.New(func(o *imagecheck.Options) {
			o.Timeout = cfg.Providers.ImageTimeout
			o.MaxParallel = cfg.Orchestrator.MaxFanOut
			o.Logger = logger
		}),
	}
	if creds.Tavily != "" {
		c.Tavily = tavily.New(creds.Tavily, common...)
	}
	if creds.Exa != "" {
		c.Exa = exa.New(creds.Exa, common...)
	}
	if creds.YTEndpoint != "" {
		c.YouTube = youtube.New(creds.YTEndpoint, common...)
	}
	if creds.TMDB != "" {
		c.TMDB = tmdb.New(creds.TMDB, common...)
	}
	if creds.OpenWeather != "" {
		c.Weather = openweather.New(creds.OpenWeather, common...)
	}
	if creds.GoogleMaps != "" {
		c.GoogleMaps = googlemaps.New(creds.GoogleMaps, common...)
	}
	if creds.Mapbox != "" {
		c.Mapbox = mapbox.New(creds.Mapbox, common...)
	}
	if creds.TripAdvisor != "" {
		c.TripAdvisor = tripadvisor.New(creds.TripAdvisor, common...)
	}
	if creds.AviationStack != "" {
		c.Flights = aviationstack.New(creds.AviationStack, common...)
	}
	if creds.SandboxEndpoint != "" && creds.SandboxAPIKey != "" {
		// The transport bound must outlast the run bound the service enforces.
		sandboxOpts := append(append([]func(o *provider.Options){}, common...),
			provider.WithTimeout(cfg.Providers.SandboxRun+cfg.Providers.Timeout))
		c.Sandbox = sandbox.New(creds.SandboxEndpoint, creds.SandboxAPIKey, creds.SandboxTemplateID, sandboxOpts...).
			WithRunTimeout(cfg.Providers.SandboxRun)
	}
	return c
}

func (sm *SearchMesh) newModel(ctx context.Context) (model.Model, error) {
	cfg := sm.cfg
	env, key := cfg.ModelCredential()
	if key == "" {
		return unconfiguredModel{provider: cfg.Model.Provider, env: env}, nil
	}
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = key
			o.Temperature = cfg.Model.Temperature
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = key
			o.Temperature = cfg.Model.Temperature
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
		}), nil
	default:
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			o.APIKey = key
			o.Temperature = float32(cfg.Model.Temperature)
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
		})
		if err != nil {
			return nil, err
		}
		sm.closers = append(sm.closers, m.Close)
		return m, nil
	}
}

// unconfiguredModel stands in for a backend whose credential is absent. The
// orchestrator rejects turns before reaching it; direct use fails the same way.
type unconfiguredModel struct {
	provider string
	env      string
}

func (m unconfiguredModel) Generate(context.Context, model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response)
	errCh := make(chan error, 1)
	errCh <- core.NewError(core.KindConfiguration, m.env+" is not set")
	close(out)
	close(errCh)
	return out, errCh
}

func (m unconfiguredModel) Info() model.Info {
	return model.Info{Name: "unconfigured", Provider: m.provider}
}

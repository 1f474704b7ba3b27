// Package config loads the service configuration. Sources are layered in
// increasing precedence: built-in defaults, an optional YAML file,
// environment variables, then command line flags (applied by the binary).
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/searchmesh/core"
)

// Model backends.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// ModelConfig selects and tunes the language model backend.
type ModelConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=gemini openai anthropic"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// OrchestratorConfig bounds a turn.
type OrchestratorConfig struct {
	MaxSteps         int           `yaml:"max_steps" validate:"gte=1"`
	TurnTimeout      time.Duration `yaml:"turn_timeout" validate:"gt=0"`
	MaxParallelTools int           `yaml:"max_parallel_tools" validate:"gte=1"`
	MaxFanOut        int           `yaml:"max_fan_out" validate:"gte=1"`
}

// ProvidersConfig tunes the shared provider transport.
type ProvidersConfig struct {
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	RateLimit    float64       `yaml:"rate_limit" validate:"gte=0"`
	Burst        int           `yaml:"burst" validate:"gte=0"`
	ImageTimeout time.Duration `yaml:"image_timeout" validate:"gt=0"`
	SandboxRun   time.Duration `yaml:"sandbox_run_timeout" validate:"gt=0"`
}

// Credentials are the secrets and endpoints of external services. They are
// never logged.
type Credentials struct {
	GoogleAI          string `yaml:"google_generative_ai_api_key"`
	OpenAI            string `yaml:"openai_api_key"`
	Anthropic         string `yaml:"anthropic_api_key"`
	Tavily            string `yaml:"tavily_api_key"`
	Exa               string `yaml:"exa_api_key"`
	TMDB              string `yaml:"tmdb_api_key"`
	YTEndpoint        string `yaml:"yt_endpoint"`
	OpenWeather       string `yaml:"openweather_api_key"`
	SandboxAPIKey     string `yaml:"sandbox_api_key"`
	SandboxTemplateID string `yaml:"sandbox_template_id"`
	SandboxEndpoint   string `yaml:"sandbox_endpoint"`
	GoogleMaps        string `yaml:"google_maps_api_key"`
	Mapbox            string `yaml:"mapbox_access_token"`
	TripAdvisor       string `yaml:"tripadvisor_api_key"`
	AviationStack     string `yaml:"aviation_stack_api_key"`
}

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Model        ModelConfig        `yaml:"model"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Credentials  Credentials        `yaml:"credentials"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", ShutdownTimeout: 15 * time.Second},
		Log:    LogConfig{Level: "info", Format: "json"},
		Model:  ModelConfig{Provider: ProviderGemini, Temperature: 0},
		Orchestrator: OrchestratorConfig{
			MaxSteps:         8,
			TurnTimeout:      2 * time.Minute,
			MaxParallelTools: 8,
			MaxFanOut:        16,
		},
		Providers: ProvidersConfig{
			Timeout:      30 * time.Second,
			ImageTimeout: 5 * time.Second,
			SandboxRun:   60 * time.Second,
		},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into c. Keys absent from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.WrapError(core.KindConfiguration, "read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return core.WrapError(core.KindConfiguration, fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"GOOGLE_GENERATIVE_AI_API_KEY": &c.Credentials.GoogleAI,
		"OPENAI_API_KEY":               &c.Credentials.OpenAI,
		"ANTHROPIC_API_KEY":            &c.Credentials.Anthropic,
		"TAVILY_API_KEY":               &c.Credentials.Tavily,
		"EXA_API_KEY":                  &c.Credentials.Exa,
		"TMDB_API_KEY":                 &c.Credentials.TMDB,
		"YT_ENDPOINT":                  &c.Credentials.YTEndpoint,
		"OPENWEATHER_API_KEY":          &c.Credentials.OpenWeather,
		"SANDBOX_API_KEY":              &c.Credentials.SandboxAPIKey,
		"SANDBOX_TEMPLATE_ID":          &c.Credentials.SandboxTemplateID,
		"SANDBOX_ENDPOINT":             &c.Credentials.SandboxEndpoint,
		"GOOGLE_MAPS_API_KEY":          &c.Credentials.GoogleMaps,
		"MAPBOX_ACCESS_TOKEN":          &c.Credentials.Mapbox,
		"TRIPADVISOR_API_KEY":          &c.Credentials.TripAdvisor,
		"AVIATION_STACK_API_KEY":       &c.Credentials.AviationStack,
		"SEARCHMESH_ADDR":              &c.Server.Addr,
		"SEARCHMESH_LOG_LEVEL":         &c.Log.Level,
		"SEARCHMESH_LOG_FORMAT":        &c.Log.Format,
		"SEARCHMESH_MODEL_PROVIDER":    &c.Model.Provider,
		"SEARCHMESH_MODEL":             &c.Model.Name,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"SEARCHMESH_MAX_STEPS":          &c.Orchestrator.MaxSteps,
		"SEARCHMESH_MAX_PARALLEL_TOOLS": &c.Orchestrator.MaxParallelTools,
		"SEARCHMESH_MAX_FAN_OUT":        &c.Orchestrator.MaxFanOut,
	}
	durations := map[string]*time.Duration{
		"SEARCHMESH_TURN_TIMEOUT":     &c.Orchestrator.TurnTimeout,
		"SEARCHMESH_PROVIDER_TIMEOUT": &c.Providers.Timeout,
	}

	var errs []error
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = n
		}
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = d
		}
	}
	if v, ok := lookup("SEARCHMESH_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SEARCHMESH_TEMPERATURE: %w", err))
		} else {
			c.Model.Temperature = f
		}
	}
	if len(errs) > 0 {
		return core.WrapError(core.KindConfiguration, "invalid environment", errors.Join(errs...))
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges. Credentials are not checked here; see
// Missing.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return core.NewError(core.KindConfiguration, "invalid configuration: "+strings.Join(fields, ", "))
		}
		return core.WrapError(core.KindConfiguration, "invalid configuration", err)
	}
	return nil
}

// ModelCredential returns the env name and value of the credential required
// by the selected model backend.
func (c *Config) ModelCredential() (string, string) {
	switch c.Model.Provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY", c.Credentials.OpenAI
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY", c.Credentials.Anthropic
	default:
		return "GOOGLE_GENERATIVE_AI_API_KEY", c.Credentials.GoogleAI
	}
}

// Missing returns the sorted names of absent credentials required by the
// model backend and by the given tools.
func (c *Config) Missing(tools []string) []string {
	values := c.credentialValues()
	set := map[string]struct{}{}
	if name, v := c.ModelCredential(); v == "" {
		set[name] = struct{}{}
	}
	for _, t := range tools {
		for _, name := range ToolCredentials[t] {
			if values[name] == "" {
				set[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Config) credentialValues() map[string]string {
	return map[string]string{
		"TAVILY_API_KEY":         c.Credentials.Tavily,
		"EXA_API_KEY":            c.Credentials.Exa,
		"TMDB_API_KEY":           c.Credentials.TMDB,
		"YT_ENDPOINT":            c.Credentials.YTEndpoint,
		"OPENWEATHER_API_KEY":    c.Credentials.OpenWeather,
		"SANDBOX_API_KEY":        c.Credentials.SandboxAPIKey,
		"SANDBOX_TEMPLATE_ID":    c.Credentials.SandboxTemplateID,
		"SANDBOX_ENDPOINT":       c.Credentials.SandboxEndpoint,
		"GOOGLE_MAPS_API_KEY":    c.Credentials.GoogleMaps,
		"MAPBOX_ACCESS_TOKEN":    c.Credentials.Mapbox,
		"TRIPADVISOR_API_KEY":    c.Credentials.TripAdvisor,
		"AVIATION_STACK_API_KEY": c.Credentials.AviationStack,
	}
}

var sandboxCredentials = []string{"SANDBOX_API_KEY", "SANDBOX_TEMPLATE_ID", "SANDBOX_ENDPOINT"}

// ToolCredentials lists the credentials each tool needs.
var ToolCredentials = map[string][]string{
	"web_search":         {"TAVILY_API_KEY"},
	"academic_search":    {"EXA_API_KEY"},
	"youtube_search":     {"EXA_API_KEY", "YT_ENDPOINT"},
	"tmdb_search":        {"TMDB_API_KEY"},
	"trending_movies":    {"TMDB_API_KEY"},
	"trending_tv":        {"TMDB_API_KEY"},
	"get_weather_data":   {"OPENWEATHER_API_KEY"},
	"find_place":         {"GOOGLE_MAPS_API_KEY", "MAPBOX_ACCESS_TOKEN"},
	"text_search":        {"MAPBOX_ACCESS_TOKEN"},
	"nearby_search":      {"TRIPADVISOR_API_KEY", "GOOGLE_MAPS_API_KEY"},
	"track_flight":       {"AVIATION_STACK_API_KEY"},
	"retrieve":           nil,
	"code_interpreter":   sandboxCredentials,
	"stock_chart":        sandboxCredentials,
	"currency_converter": sandboxCredentials,
}

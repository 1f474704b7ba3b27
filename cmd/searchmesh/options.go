package main

import (
	"time"

	"github.com/hupe1980/searchmesh/config"
)

// Options are the command line flags. The struct tags are interpreted by
// github.com/jessevdk/go-flags. Pointer fields stay nil unless the flag is
// given, so only explicit flags override the file and environment.
type Options struct {
	Config           string         `short:"f" long:"config" description:"configuration YAML path"`
	Addr             *string        `short:"a" long:"addr" description:"HTTP listen address"`
	LogLevel         *string        `long:"log-level" description:"log level (debug, info, warn, error)"`
	LogFormat        *string        `long:"log-format" description:"log format (json, text)"`
	ModelProvider    *string        `short:"p" long:"model-provider" description:"model backend (gemini, openai, anthropic)"`
	Model            *string        `short:"m" long:"model" description:"model name"`
	MaxSteps         *int           `long:"max-steps" description:"model steps per turn"`
	TurnTimeout      *time.Duration `long:"turn-timeout" description:"wall clock bound of a turn"`
	MaxParallelTools *int           `long:"max-parallel-tools" description:"tool calls of one step running at once"`
	MaxFanOut        *int           `long:"max-fan-out" description:"concurrency of fan-out inside a tool"`
	CheckConfig      bool           `long:"check-config" description:"validate the configuration and exit"`
}

// apply overrides cfg with the flags that were given.
func (o *Options) apply(cfg *config.Config) {
	if o.Addr != nil {
		cfg.Server.Addr = *o.Addr
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Log.Format = *o.LogFormat
	}
	if o.ModelProvider != nil {
		cfg.Model.Provider = *o.ModelProvider
	}
	if o.Model != nil {
		cfg.Model.Name = *o.Model
	}
	if o.MaxSteps != nil {
		cfg.Orchestrator.MaxSteps = *o.MaxSteps
	}
	if o.TurnTimeout != nil {
		cfg.Orchestrator.TurnTimeout = *o.TurnTimeout
	}
	if o.MaxParallelTools != nil {
		cfg.Orchestrator.MaxParallelTools = *o.MaxParallelTools
	}
	if o.MaxFanOut != nil {
		cfg.Orchestrator.MaxFanOut = *o.MaxFanOut
	}
}

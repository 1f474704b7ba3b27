package main

import (
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/searchmesh/config"
)

func TestOptions_OnlyGivenFlagsOverride(t *testing.T) {
	opts := &Options{}
	_, err := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash).
		ParseArgs([]string{"--addr", ":9999", "--max-steps", "3", "--turn-timeout", "30s"})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Model.Provider = config.ProviderOpenAI
	opts.apply(cfg)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Orchestrator.MaxSteps)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.TurnTimeout)
	assert.Equal(t, config.ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, 8, cfg.Orchestrator.MaxParallelTools)
}

func TestRun_HelpAndBadFlags(t *testing.T) {
	err := run([]string{"--help"})
	var ferr *flags.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, flags.ErrHelp, ferr.Type)

	assert.Error(t, run([]string{"--max-steps", "many"}))
}

// Command searchmesh serves the conversational search API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	// Embedded zone database for opening hours in minimal containers.
	_ "time/tzdata"

	"github.com/hupe1980/searchmesh"
	"github.com/hupe1980/searchmesh/config"
	"github.com/hupe1980/searchmesh/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, ferr.Message)
			return
		}
		fmt.Fprintln(os.Stderr, "searchmesh:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sm, err := searchmesh.New(ctx, cfg, func(o *searchmesh.Options) { o.Logger = logger })
	if err != nil {
		return err
	}
	defer func() { _ = sm.Close() }()

	if opts.CheckConfig {
		logger.Info("config.ok", "model_provider", cfg.Model.Provider, "tools", len(sm.Tools().Names()))
		return nil
	}

	return sm.Server().ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

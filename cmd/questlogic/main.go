// questlogic loads a directory of Lua quest scripts and runs its trigger
// chains, either in the Bubble Tea monitor or on a plain line console.
//
// Usage: questlogic [flags] [scripts_dir]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/nathoo/questlogic/cli"
	"github.com/nathoo/questlogic/config"
	"github.com/nathoo/questlogic/engine"
	"github.com/nathoo/questlogic/loader"
	"github.com/nathoo/questlogic/logging"
	"github.com/nathoo/questlogic/storage"
	"github.com/nathoo/questlogic/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "YAML config file")
		showVersion = flag.Bool("version", false, "print the version and exit")
		plain       = flag.Bool("plain", false, "use the line console instead of the monitor")
		script      = flag.String("script", "", "play console commands from a file (implies -plain)")
		trace       = flag.Bool("trace", false, "print chain events after each command")
		logLevel    = flag.String("log-level", "", "override log.level")
		saveBackend = flag.String("save", "", "override save.backend (file or redis)")
		profile     = flag.Bool("profile", false, "start with the profiler recording")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("questlogic %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if dir := flag.Arg(0); dir != "" {
		cfg.Scripts.Dir = dir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *saveBackend != "" {
		cfg.Save.Backend = *saveBackend
	}
	if *profile {
		cfg.Profiler.Enabled = true
	}
	if cfg.Scripts.Dir == "" {
		return fmt.Errorf("no scripts directory; pass one or set scripts.dir")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	enc, err := loader.LookupEncoding(cfg.Scripts.Encoding)
	if err != nil {
		return err
	}
	loadOpts := []loader.Option{loader.WithLogger(log), loader.WithEncoding(enc)}
	defs, err := loader.Load(cfg.Scripts.Dir, loadOpts...)
	if err != nil {
		return fmt.Errorf("loading scripts: %w", err)
	}

	eng, err := engine.New(defs,
		engine.WithLogger(log),
		engine.WithSeed(cfg.Engine.Seed),
		engine.WithPasses(cfg.Engine.Passes),
		engine.WithTick(cfg.Engine.Tick),
		engine.WithProfiler(cfg.Profiler.Enabled),
	)
	if err != nil {
		return err
	}
	log.Info("engine ready",
		zap.String("session", eng.Session.String()),
		zap.String("title", defs.Game.Title),
		zap.Int("chains", len(defs.Chains)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := storage.Open(ctx, cfg.Save, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if *script != "" || *plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		c := cli.New(eng, store)
		c.Trace = *trace
		c.WorkFile = cfg.Profiler.WorkFile
		c.DumpOptions = []loader.Option{loader.WithEncoding(enc)}
		if *script != "" {
			f, err := os.Open(*script)
			if err != nil {
				return err
			}
			defer f.Close()
			c.In = f
			c.EchoInput = true
		}
		c.Run(ctx)
		return nil
	}

	return tui.Run(ctx, eng, store)
}

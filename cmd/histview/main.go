// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command histview draws live histogram snapshot files in the terminal.
//
//	histview --reset /dev/shm/shmFile_basic_1.shm
//	histview --config histview.yaml --archive /var/tmp/session.parquet
//	histview dump /var/tmp/session.parquet
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/bpowers/histview/internal/archive"
	"github.com/bpowers/histview/internal/config"
	"github.com/bpowers/histview/internal/layout"
	"github.com/bpowers/histview/internal/logging"
	"github.com/bpowers/histview/internal/render"
)

type flags struct {
	config   string
	interval time.Duration
	reset    bool
	color    string
	title    string
	mmap     bool
	once     bool
	archive  string
	logLevel string
	logJSON  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "histview [flags] [snapshot files...]",
		Short:        "Live view of histogram snapshot files",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, f.once)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "YAML config file")
	fl.DurationVarP(&f.interval, "interval", "i", config.DefaultInterval, "poll interval")
	fl.BoolVarP(&f.reset, "reset", "r", false, "show deltas against the first snapshot")
	fl.StringVar(&f.color, "color", "", "plot color for files given as arguments")
	fl.StringVar(&f.title, "title", "", "plot title for files given as arguments")
	fl.BoolVar(&f.mmap, "mmap", false, "read files through a shared mapping instead of pread")
	fl.BoolVar(&f.once, "once", false, "poll and draw a single frame, then exit")
	fl.StringVar(&f.archive, "archive", "", "append every polled snapshot to this parquet file")
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fl.BoolVar(&f.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(newDumpCmd())
	return cmd
}

// loadConfig merges the config file with flags; flags win.
func loadConfig(cmd *cobra.Command, f flags, args []string) (*config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("interval") {
		cfg.Interval = f.interval
	}
	if fl.Changed("mmap") {
		cfg.Backend = config.BackendPread
		if f.mmap {
			cfg.Backend = config.BackendMmap
		}
	}
	if fl.Changed("archive") {
		cfg.Archive.Path = f.archive
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fl.Changed("log-json") {
		cfg.Log.JSON = f.logJSON
	}
	if f.reset {
		for i := range cfg.Sources {
			cfg.Sources[i].Reset = true
		}
	}
	cfg.AddPaths(args, f.reset, config.Display{Color: f.color, Title: f.title})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no snapshot files: pass paths or --config")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, once bool) (err error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.Log.JSON)
	log := logging.Component("main")

	var opts []layout.Option
	if cfg.Archive.Path != "" {
		w, aerr := archive.Create(cfg.Archive.Path, cfg.Archive.Compression)
		if aerr != nil {
			return aerr
		}
		defer func() { err = multierr.Append(err, w.Close()) }()
		opts = append(opts, layout.WithSink(w))
		log.Info("archiving snapshots", "path", w.Path())
	}

	l := layout.FromConfig(cfg, opts...)
	defer func() { err = multierr.Append(err, l.Close()) }()

	r := render.NewTerminal(os.Stdout, render.WithClear(!once))
	if err := l.PollAndRender(r); err != nil || once {
		return err
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug("stopping", "cause", context.Cause(ctx))
			return nil
		case <-ticker.C:
			if err := l.PollAndRender(r); err != nil {
				return err
			}
		}
	}
}

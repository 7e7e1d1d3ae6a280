package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/tlatorre-uchicago/zebra/internal/config"
	"github.com/tlatorre-uchicago/zebra/internal/logger"
	"github.com/tlatorre-uchicago/zebra/internal/render"
	"github.com/tlatorre-uchicago/zebra/internal/scan"
	"github.com/tlatorre-uchicago/zebra/pkg/zebra"
)

// options holds the global flags. Config file values fill in whatever was
// not set on the command line.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	debug      bool

	onError       string
	maxResyncs    int
	output        string
	digest        bool
	summary       bool
	jobs          int
	maxRecordSize int64

	policy scan.Policy
	format render.Format
	log    logger.Logger
}

func (o *options) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "config file (default: $XDG_CONFIG_HOME/zebra/config.yaml)",
			Destination: &o.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &o.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &o.logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &o.debug,
		},
		&cli.StringFlag{
			Name:        "on-error",
			Usage:       "what to do with a damaged stream (abort, resync)",
			Value:       "abort",
			Destination: &o.onError,
		},
		&cli.IntFlag{
			Name:        "max-resyncs",
			Usage:       "give up on a file after this many resyncs (0 = no limit)",
			Value:       100,
			Destination: &o.maxResyncs,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "output format (text, json)",
			Value:       "text",
			Destination: &o.output,
		},
		&cli.BoolFlag{
			Name:        "digest",
			Usage:       "print the sha256 digest of each bank payload",
			Destination: &o.digest,
		},
		&cli.BoolFlag{
			Name:        "summary",
			Usage:       "print totals after the last file",
			Destination: &o.summary,
		},
		&cli.IntFlag{
			Name:        "jobs",
			Aliases:     []string{"j"},
			Usage:       "number of files decoded concurrently",
			Value:       runtime.NumCPU(),
			Destination: &o.jobs,
		},
		&cli.Int64Flag{
			Name:        "max-record-size",
			Usage:       "largest physical record payload accepted, in bytes",
			Value:       zebra.DefaultMaxRecordSize,
			Destination: &o.maxRecordSize,
		},
	}
}

// before loads the config file, validates the merged options and installs
// the logger in the context.
func (o *options) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return ctx, fmt.Errorf("config: %w", err)
	}
	o.applyConfig(cmd, cfg)

	if o.policy, err = scan.ParsePolicy(o.onError); err != nil {
		return ctx, err
	}
	if o.format, err = render.ParseFormat(o.output); err != nil {
		return ctx, err
	}
	if o.jobs < 1 {
		return ctx, fmt.Errorf("--jobs must be at least 1, got %d", o.jobs)
	}
	if o.maxResyncs < 0 {
		return ctx, fmt.Errorf("--max-resyncs must not be negative, got %d", o.maxResyncs)
	}
	if o.maxRecordSize <= 0 {
		return ctx, fmt.Errorf("--max-record-size must be positive, got %d", o.maxRecordSize)
	}

	format, err := logger.ParseFormat(o.logFormat)
	if err != nil {
		return ctx, err
	}
	level := logger.ParseLevel(o.logLevel)
	if o.debug {
		level = slog.LevelDebug
	}
	o.log = logger.NewWithFormat(cmd.Root().ErrWriter, format, level)
	o.log.Debug("options", "policy", o.policy, "output", o.format, "jobs", o.jobs,
		"max_resyncs", o.maxResyncs, "max_record_size", o.maxRecordSize)
	return logger.WithContext(ctx, o.log), nil
}

// applyConfig copies config values into options whose flags were not set.
func (o *options) applyConfig(cmd *cli.Command, cfg config.Config) {
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		o.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		o.logFormat = cfg.LogFormat
	}
	if cfg.OnError != "" && !cmd.IsSet("on-error") {
		o.onError = cfg.OnError
	}
	if cfg.MaxResyncs != nil && !cmd.IsSet("max-resyncs") {
		o.maxResyncs = *cfg.MaxResyncs
	}
	if cfg.Output != "" && !cmd.IsSet("output") {
		o.output = cfg.Output
	}
	if cfg.Digest != nil && !cmd.IsSet("digest") {
		o.digest = *cfg.Digest
	}
	if cfg.Jobs != nil && !cmd.IsSet("jobs") {
		o.jobs = *cfg.Jobs
	}
	if cfg.MaxRecordSize != nil && !cmd.IsSet("max-record-size") {
		o.maxRecordSize = *cfg.MaxRecordSize
	}
}

func (o *options) scanOptions(filter func(zebra.Bank) bool) scan.Options {
	return scan.Options{
		Policy:     o.policy,
		MaxResyncs: o.maxResyncs,
		Filter:     filter,
		Logger:     o.log,
	}
}

func (o *options) renderOptions(verbose bool) render.Options {
	return render.Options{Format: o.format, Digest: o.digest, Verbose: verbose}
}

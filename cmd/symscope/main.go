package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"symscope/internal/core/app"
	"symscope/internal/core/config"
	"symscope/internal/shared/observability"
)

const VERSION = "0.3.0"

const defaultConfigPath = "./symscope.toml"

type options struct {
	configPath string
	once       bool
	watch      bool
	json       bool
	verbose    bool
	version    bool
	history    int
	paths      []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("symscope", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.once, "once", false, "Run a single scan and exit")
	fs.BoolVar(&opts.watch, "watch", false, "Rescan changed files until interrupted")
	fs.BoolVar(&opts.json, "json", false, "Print reports as JSON")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.IntVar(&opts.history, "history", 0, "Print the trend of the last N recorded runs and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.once && opts.watch {
		return opts, errors.New("-once and -watch cannot be used together")
	}
	if opts.history < 0 {
		return opts, errors.New("-history must not be negative")
	}
	opts.paths = fs.Args()
	return opts, nil
}

// loadConfig reads the config file. A missing file at the default path
// falls back to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file; using defaults", "path", path)
		return config.Default(), nil
	}
	return nil, err
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(stdout, "symscope v%s\n", VERSION)
		return 0
	}

	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "path", opts.configPath, "error", err)
		return 1
	}
	if len(opts.paths) > 0 {
		cfg.WatchPaths = opts.paths
	}
	if opts.json {
		cfg.Output.Format = "json"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	if addr := cfg.Observability.MetricsAddress; addr != "" {
		srv, err := observability.ServeMetrics(addr)
		if err != nil {
			slog.Error("failed to start metrics server", "addr", addr, "error", err)
			return 1
		}
		defer srv.Stop(context.Background())
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer a.Close()

	printer := newPrinter(stdout, cfg.Output.Format)

	if opts.history > 0 {
		points, err := a.Trend(ctx, opts.history)
		if err != nil {
			slog.Error("failed to load history", "error", err)
			return 1
		}
		if err := printer.Trend(points); err != nil {
			slog.Error("failed to print history", "error", err)
			return 1
		}
		return 0
	}

	report, err := a.Scan(ctx, nil)
	if err != nil {
		slog.Error("scan failed", "error", err)
		return 1
	}
	if err := printer.Report(report); err != nil {
		slog.Error("failed to print report", "error", err)
		return 1
	}

	if !opts.watch {
		if report.Clean() {
			return 0
		}
		return 3
	}

	if opts.configPath != "" {
		if _, statErr := os.Stat(opts.configPath); statErr == nil {
			cw := config.NewWatcher(opts.configPath, func(next *config.Config) {
				if len(opts.paths) > 0 {
					next.WatchPaths = opts.paths
				}
				if err := a.Reconfigure(next); err != nil {
					slog.Warn("failed to apply reloaded config", "error", err)
				}
			})
			if err := cw.Start(ctx); err != nil {
				slog.Warn("config hot reload unavailable", "error", err)
			} else {
				defer cw.Stop()
			}
		}
	}

	err = a.Watch(ctx, func(r *app.Report) {
		if err := printer.Report(r); err != nil {
			slog.Warn("failed to print report", "error", err)
		}
	})
	if err != nil {
		slog.Error("watch failed", "error", err)
		return 1
	}
	return 0
}

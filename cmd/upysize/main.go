// # cmd/upysize/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"upysize/internal/config"
	"upysize/internal/observability"
)

var (
	configPath = flag.String("config", "./upysize.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single scan and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	watch      = flag.Bool("watch", false, "Re-analyze on file changes")
	fix        = flag.Bool("fix", false, "Apply safe rewrites in place")
	noCache    = flag.Bool("no-cache", false, "Skip the result cache")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("upysize v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *ui {
		// In UI mode, avoid terminal logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./upysize.toml" && os.IsNotExist(err) {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if flag.NArg() > 0 {
		cfg.Paths = flag.Args()
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if *noCache {
		cfg.Cache.Path = ""
	}
	if cfg.Analysis.AutoRewrite {
		*fix = true
	}

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			slog.Debug("trace shutdown", "error", err)
		}
	}()

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	app.Verbose = *verbose
	defer app.Close()

	// Initial scan
	outcomes, err := app.Scan(ctx)
	if err != nil {
		slog.Error("initial scan failed", "error", err)
		os.Exit(1)
	}

	if *fix {
		if err := app.ApplyFixes(ctx, outcomes); err != nil {
			slog.Error("failed to apply rewrites", "error", err)
			os.Exit(1)
		}
		// Re-analyze rewritten sources so reports describe the new state.
		outcomes, err = app.Scan(ctx)
		if err != nil {
			slog.Error("re-scan after rewrite failed", "error", err)
			os.Exit(1)
		}
	}

	if err := app.GenerateOutputs(outcomes); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	if !*ui {
		app.PrintSummary(outcomes)
	}

	if *once || (!*watch && !*ui) {
		os.Exit(app.ExitCode(outcomes))
	}

	if *watch {
		if cfg.Observability.Listen != "" {
			srv := observability.NewServer(cfg.Observability.Listen)
			srv.Start()
			defer srv.Shutdown(ctx)
		}

		if err := app.StartWatcher(ctx); err != nil {
			slog.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
	}

	if *ui {
		if err := app.RunUI(outcomes); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		// Block forever
		select {}
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "upysize", "upysize.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "upysize", "upysize.log")
	}

	return "upysize.log"
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/ratelimiter/pkg/cli"
	"mercator-hq/ratelimiter/pkg/config"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rate limiter service",
	Long: `Start the rate limiter service with the specified configuration.

The service creates every configured limiter, records limiter events when
enabled, and serves the admin API until it receives SIGINT or SIGTERM.
SIGHUP reloads the rate limiter configuration; with watch: true the file
is also reloaded whenever it changes.

Examples:
  # Start with default config
  ratelimiter run

  # Start with custom config
  ratelimiter run --config /etc/ratelimiter/config.yaml

  # Override listen address
  ratelimiter run --listen 0.0.0.0:9090

  # Validate config without starting
  ratelimiter run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runService(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.WrapConfigError(err)
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.WrapConfigError(err)
	}

	logger, err := newLogger(&cfg.Telemetry.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	svc, err := newService(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := svc.close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := svc.start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	if cfg.Watch {
		watcher, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval, logger, svc.apply)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		if err := watcher.Start(); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer watcher.Stop()
	}

	go reloadOnSignal(ctx, svc, logger)

	fmt.Fprintf(out, "ratelimiter v%s\n", Version)
	fmt.Fprintf(out, "✓ %d rate limiters loaded from %s\n", len(svc.registry.All()), cfgFile)
	if svc.backend != nil {
		fmt.Fprintf(out, "✓ Event recording enabled (%s)\n", cfg.Events.Backend)
	}
	addr := svc.server.Addr().String()
	fmt.Fprintf(out, "✓ Admin API listening on http://%s/ratelimiters\n", addr)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := svc.serve(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Service stopped")
	return nil
}

// reloadOnSignal reapplies the configuration file on SIGHUP until ctx ends.
func reloadOnSignal(ctx context.Context, svc *service, logger *slog.Logger) {
	signals, stop := cli.ReloadSignals()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			cfg, err := config.ReloadConfig(cfgFile)
			if err != nil {
				logger.Error("config reload failed, keeping current configuration", "error", err)
				continue
			}
			logger.Info("configuration reloaded", "path", cfgFile, "trigger", "SIGHUP")
			svc.apply(cfg)
		}
	}
}

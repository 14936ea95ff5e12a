package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ratelimiter/pkg/cli"
	"mercator-hq/ratelimiter/pkg/config"
	"mercator-hq/ratelimiter/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ratelimiter",
	Short: "Named rate limiters with an admin API",
	Long: `Ratelimiter runs a registry of named rate limiters configured from YAML.

Each limiter grants a fixed number of permits per refresh period. Callers
that find no permit left wait in FIFO order until the next refresh or
their timeout. The admin API exposes limiter state, recorded events,
health probes and Prometheus metrics.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError(err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so command
// output on stdout stays machine-readable.
func newLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Writer:    os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

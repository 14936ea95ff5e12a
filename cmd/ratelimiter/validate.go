package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/ratelimiter/pkg/cli"
	"mercator-hq/ratelimiter/pkg/config"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file, then print every rate limiter
instance with its resolved configuration.

Environment overrides (RATELIMITER_*) are applied before validation, so
the output shows what "ratelimiter run" would use.

Examples:
  # Validate the default config file
  ratelimiter validate

  # Print the resolved limiters as JSON
  ratelimiter validate --config config.yaml --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, csv")
}

// limiterSummary is a resolved limiter instance.
type limiterSummary struct {
	Name               string            `json:"name"`
	BaseConfig         string            `json:"base_config,omitempty"`
	LimitForPeriod     int               `json:"limit_for_period"`
	LimitRefreshPeriod string            `json:"limit_refresh_period"`
	TimeoutDuration    string            `json:"timeout_duration"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// limiterSummaries renders as a table in text and CSV mode.
type limiterSummaries []limiterSummary

func (s limiterSummaries) Table() cli.Table {
	table := cli.Table{Headers: []string{"NAME", "BASE", "LIMIT", "PERIOD", "TIMEOUT", "TAGS"}}
	for _, l := range s {
		base := l.BaseConfig
		if base == "" {
			base = "-"
		}
		table.AddRow(l.Name, base, strconv.Itoa(l.LimitForPeriod),
			l.LimitRefreshPeriod, l.TimeoutDuration, formatTags(l.Tags))
	}
	return table
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	summaries, err := summarizeLimiters(&cfg.RateLimiters)
	if err != nil {
		return cli.WrapConfigError(err)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		fmt.Fprintf(out, "✓ Configuration valid (%s)\n\n", cfgFile)
		if len(summaries) == 0 {
			fmt.Fprintln(out, "No rate limiter instances configured.")
			return nil
		}
	}
	return formatter.FormatTo(out, summaries)
}

func summarizeLimiters(cfg *config.RateLimitersConfig) (limiterSummaries, error) {
	names := cfg.InstanceNames()
	summaries := make(limiterSummaries, 0, len(names))
	for _, name := range names {
		resolved, err := cfg.Resolve(name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, limiterSummary{
			Name:               name,
			BaseConfig:         cfg.Instances[name].BaseConfig,
			LimitForPeriod:     resolved.LimitForPeriod,
			LimitRefreshPeriod: resolved.LimitRefreshPeriod.String(),
			TimeoutDuration:    resolved.TimeoutDuration.String(),
			Tags:               mergeTags(cfg.Tags, cfg.InstanceTags(name)),
		})
	}
	return summaries, nil
}

// mergeTags overlays instance tags on the global tags.
func mergeTags(global, instance map[string]string) map[string]string {
	if len(global)+len(instance) == 0 {
		return nil
	}
	merged := maps.Clone(global)
	if merged == nil {
		merged = make(map[string]string, len(instance))
	}
	maps.Copy(merged, instance)
	return merged
}

func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return "-"
	}
	pairs := make([]string, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		pairs = append(pairs, k+"="+tags[k])
	}
	return strings.Join(pairs, ",")
}

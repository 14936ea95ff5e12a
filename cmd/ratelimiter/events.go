package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ratelimiter/pkg/cli"
	"mercator-hq/ratelimiter/pkg/config"
	"mercator-hq/ratelimiter/pkg/ratelimiter/retention"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
	"mercator-hq/ratelimiter/pkg/server"
)

var eventsFlags struct {
	limiter   string
	eventType string
	timeRange string
	limit     int
	format    string
	olderThan time.Duration
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded limiter events",
	Long: `Query and prune the limiter events recorded by "ratelimiter run".

Events are read from the SQLite database configured under events.sqlite.
The memory backend keeps events only inside the running process; use the
admin API (/ratelimiters/{name}/events) to read those.`,
}

var eventsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query recorded events",
	Long: `Query recorded events, newest first.

Time Range Format:
  RFC3339 interval format: "start/end"; either side may be empty
  Example: "2026-01-19T00:00:00Z/2026-01-20T00:00:00Z"

Examples:
  # Last 100 events of one limiter
  ratelimiter events query --limiter payments

  # Rejections in a time range as CSV
  ratelimiter events query --type failed_acquire \
    --time-range "2026-01-19T00:00:00Z/" --format csv`,
	RunE: queryEvents,
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete events according to events.retention, or all events older than
--older-than when given.

Examples:
  # Apply the configured max_age and max_records
  ratelimiter events prune

  # Delete everything older than one day
  ratelimiter events prune --older-than 24h`,
	RunE: pruneEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsQueryCmd, eventsPruneCmd)

	eventsQueryCmd.Flags().StringVar(&eventsFlags.limiter, "limiter", "", "filter by limiter name")
	eventsQueryCmd.Flags().StringVar(&eventsFlags.eventType, "type", "", "filter by event type: successful_acquire, failed_acquire, drained")
	eventsQueryCmd.Flags().StringVar(&eventsFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	eventsQueryCmd.Flags().IntVar(&eventsFlags.limit, "limit", storage.DefaultQueryLimit, "max results")
	eventsQueryCmd.Flags().StringVar(&eventsFlags.format, "format", "text", "output format: text, json, csv")

	eventsPruneCmd.Flags().DurationVar(&eventsFlags.olderThan, "older-than", 0, "delete events older than this age instead of applying the retention policy")
}

// eventRecords renders as a table in text and CSV mode.
type eventRecords []*storage.Record

func (r eventRecords) Table() cli.Table {
	table := cli.Table{Headers: []string{"TIME", "LIMITER", "TYPE", "PERMITS", "ID"}}
	for _, rec := range r {
		table.AddRow(rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.LimiterName,
			string(rec.Type), strconv.Itoa(rec.Permits), rec.ID)
	}
	return table
}

func queryEvents(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(eventsFlags.format)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}

	query := &storage.Query{
		LimiterName: eventsFlags.limiter,
		Limit:       eventsFlags.limit,
	}
	if eventsFlags.eventType != "" {
		if query.Type, err = server.ParseEventType(eventsFlags.eventType); err != nil {
			return err
		}
	}
	if eventsFlags.timeRange != "" {
		if query.Since, query.Until, err = parseTimeRange(eventsFlags.timeRange); err != nil {
			return err
		}
	}
	if err := query.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, logger, err := openEventStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx := cmd.Context()
	records, err := backend.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("events query", err)
	}
	logger.Debug("events queried", "count", len(records))

	out := cmd.OutOrStdout()
	if format == cli.FormatText && len(records) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}
	return formatter.FormatTo(out, eventRecords(records))
}

func pruneEvents(cmd *cobra.Command, args []string) error {
	if eventsFlags.olderThan < 0 {
		return fmt.Errorf("--older-than must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, logger, err := openEventStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	pruner := retention.NewPruner(backend, retentionConfig(&cfg.Events.Retention), logger)

	ctx := cmd.Context()

	var deleted int64
	if eventsFlags.olderThan > 0 {
		deleted, err = pruner.PruneOlderThan(ctx, eventsFlags.olderThan)
	} else {
		deleted, err = pruner.Prune(ctx)
	}
	if err != nil {
		return cli.NewCommandError("events prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d events\n", deleted)
	return nil
}

// openEventStore opens the SQLite event store named by cfg.
func openEventStore(cfg *config.Config) (storage.Backend, *slog.Logger, error) {
	if cfg.Events.Backend != "sqlite" {
		return nil, nil, cli.NewConfigError("events.backend",
			fmt.Sprintf("events commands need the sqlite backend, got %q", cfg.Events.Backend))
	}

	logger, err := newLogger(&cfg.Telemetry.Logging)
	if err != nil {
		return nil, nil, err
	}

	backend, err := openBackend(&cfg.Events, logger)
	if err != nil {
		return nil, nil, cli.NewCommandError("events", err)
	}
	return backend, logger, nil
}

// parseTimeRange parses "start/end" where either side may be empty.
func parseTimeRange(s string) (since, until time.Time, err error) {
	start, end, ok := strings.Cut(s, "/")
	if !ok {
		return since, until, fmt.Errorf("invalid time range %q: expected start/end", s)
	}
	if start != "" {
		if since, err = time.Parse(time.RFC3339, start); err != nil {
			return since, until, fmt.Errorf("invalid time range start: %w", err)
		}
	}
	if end != "" {
		if until, err = time.Parse(time.RFC3339, end); err != nil {
			return since, until, fmt.Errorf("invalid time range end: %w", err)
		}
	}
	return since, until, nil
}

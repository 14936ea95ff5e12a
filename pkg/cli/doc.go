/*
Package cli provides command-line utilities for the ratelimiter command.

Output Formatting:

Commands print either a table or JSON:

	formatter, err := cli.NewFormatter(cli.FormatText)
	if err != nil {
		return err
	}
	table := cli.Table{Headers: []string{"NAME", "LIMIT"}}
	table.AddRow("payments", "10")
	return formatter.FormatTo(os.Stdout, table)

Values that implement Tabular render as aligned columns in text mode and
as rows in CSV mode. JSON mode encodes the value itself.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	reload, stopReload := cli.ReloadSignals()
	defer stopReload()

Errors:

ExitCode maps a command error to the process exit code. Configuration
errors exit with ExitConfig so scripts can tell them apart from runtime
failures.
*/
package cli

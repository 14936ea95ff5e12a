package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ratelimiter.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// execute runs the root command with args and returns its stdout. Flag
// variables are reset first since cobra keeps them between executions.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile = "config.yaml"
	verbose = false
	validateFlags.format = "text"
	runFlags.listenAddress = ""
	runFlags.logLevel = ""
	runFlags.dryRun = false
	eventsFlags.limiter = ""
	eventsFlags.eventType = ""
	eventsFlags.timeRange = ""
	eventsFlags.limit = storage.DefaultQueryLimit
	eventsFlags.format = "text"
	eventsFlags.olderThan = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

package main

import (
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/ratelimiter/pkg/cli"
	"mercator-hq/ratelimiter/pkg/config"
)

const validConfig = `
ratelimiters:
  defaults:
    limit_for_period: 10
    limit_refresh_period: "1s"
    timeout_duration: "2s"
  configs:
    strict:
      limit_for_period: 1
      timeout_duration: "0s"
  instances:
    payments:
      base_config: strict
      tags:
        team: billing
    search: {}
  tags:
    env: test
`

func TestValidateCommand_Text(t *testing.T) {
	path := writeConfig(t, validConfig)

	out, err := execute(t, "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}

	for _, want := range []string{
		"Configuration valid",
		"NAME      BASE    LIMIT  PERIOD  TIMEOUT  TAGS",
		"payments  strict  1      1s      0s       env=test,team=billing",
		"search    -       10     1s      2s       env=test",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	path := writeConfig(t, validConfig)

	out, err := execute(t, "validate", "--config", path, "--format", "json")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}

	var summaries []limiterSummary
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", out, err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 limiters, got %d", len(summaries))
	}
	if summaries[0].Name != "payments" || summaries[0].LimitForPeriod != 1 {
		t.Errorf("Unexpected first limiter: %+v", summaries[0])
	}
}

func TestValidateCommand_NoInstances(t *testing.T) {
	path := writeConfig(t, "ratelimiters:\n  defaults:\n    limit_for_period: 5\n")

	out, err := execute(t, "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "No rate limiter instances configured.") {
		t.Errorf("Expected empty notice, got %q", out)
	}
}

func TestValidateCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		args     []string
		wantExit int
	}{
		{
			name:     "invalid limiter",
			content:  "ratelimiters:\n  instances:\n    api:\n      limit_for_period: -1\n",
			wantExit: cli.ExitConfig,
		},
		{
			name:     "unknown field",
			content:  "ratelimiter:\n  defaults: {}\n",
			wantExit: cli.ExitConfig,
		},
		{
			name:     "unknown format",
			content:  validConfig,
			args:     []string{"--format", "yaml"},
			wantExit: cli.ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			args := append([]string{"validate", "--config", path}, tt.args...)

			_, err := execute(t, args...)
			if err == nil {
				t.Fatal("Expected error")
			}
			if got := cli.ExitCode(err); got != tt.wantExit {
				t.Errorf("ExitCode() = %d, want %d (err: %v)", got, tt.wantExit, err)
			}
		})
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", "--config", "/nonexistent/ratelimiter.yaml")
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("Expected config exit code, got %v", err)
	}
}

func TestSummarizeLimiters_MergesTags(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimiters.Tags = map[string]string{"env": "prod", "team": "platform"}
	cfg.RateLimiters.Instances = map[string]config.LimiterConfig{
		"api":  {Tags: map[string]string{"team": "payments"}},
		"bare": {},
	}

	summaries, err := summarizeLimiters(&cfg.RateLimiters)
	if err != nil {
		t.Fatalf("summarizeLimiters() error = %v", err)
	}

	if got := formatTags(summaries[0].Tags); got != "env=prod,team=payments" {
		t.Errorf("Expected instance tag to win, got %q", got)
	}
	if got := formatTags(summaries[1].Tags); got != "env=prod,team=platform" {
		t.Errorf("Expected global tags, got %q", got)
	}
}

func TestFormatTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     map[string]string
		expected string
	}{
		{"nil", nil, "-"},
		{"sorted", map[string]string{"b": "2", "a": "1"}, "a=1,b=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTags(tt.tags); got != tt.expected {
				t.Errorf("formatTags() = %q, want %q", got, tt.expected)
			}
		})
	}
}

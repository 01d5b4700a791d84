package main

import (
	"os"
	"strings"
	"testing"
)

func TestLogsCommandShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)

	content := "level=INFO msg=\"sync pass started\"\nlevel=INFO msg=\"sync pass finished\"\n"
	if err := os.WriteFile(env.cfg.CurrentLogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs command failed: %v", err)
	}
	requireContains(t, out, "sync pass finished")
	if strings.Contains(out, "sync pass started") {
		t.Fatalf("expected only the trailing line, got:\n%s", out)
	}
}

func TestLogsCommandWithMissingLogFile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs command failed: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output for missing log, got %q", out)
	}
}

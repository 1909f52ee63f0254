package procexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandExecutorForwardsLines(t *testing.T) {
	script := writeScript(t, "echo out=1\necho err=2 1>&2\n")
	var lines []string
	err := CommandExecutor{}.Run(context.Background(), script, nil, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	joined := strings.Join(lines, ",")
	if !strings.Contains(joined, "out=1") || !strings.Contains(joined, "err=2") {
		t.Fatalf("expected both streams forwarded, got %v", lines)
	}
}

func TestCommandExecutorReportsTail(t *testing.T) {
	script := writeScript(t, "echo 'Invalid argument' 1>&2\nexit 3\n")
	err := CommandExecutor{}.Run(context.Background(), script, nil, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid argument") {
		t.Fatalf("expected output tail in error, got %v", err)
	}
}

func TestCommandExecutorMissingBinary(t *testing.T) {
	err := CommandExecutor{}.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunPrintsSchemaAndExitsCleanly(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := run([]string{"-print-schema"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit code 0, got %d (%s)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "track_id") {
		t.Fatalf("expected schema output, got %q", stdout.String())
	}
}

func TestRunReturnsErrorCodeForInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	envFile := filepath.Join(t.TempDir(), "missing.env")

	code := run([]string{"-env", envFile, "-api", "http://localhost:1", "-mic", "webcam"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "invalid config") {
		t.Fatalf("expected config error on stderr, got %q", stderr.String())
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := run([]string{"-no-such-flag"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

//go:build !gui

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--version"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}
	want := "brp dev (commit: none, built: unknown)\n"
	if stdout.String() != want {
		t.Errorf("version output = %q, want %q", stdout.String(), want)
	}
}

func TestRunReportsErrors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BRP_PROGRESS_PATH", filepath.Join(t.TempDir(), "reading_progress.yaml"))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown book", []string{"record", "Tobit", "1"}, "Error: unknown book"},
		{"bad chapter", []string{"record", "Jude", "2"}, "Error: "},
		{"unknown command", []string{"read"}, "Error: unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("run(%v) = %d, want 1", tt.args, code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.want)
			}
		})
	}
}

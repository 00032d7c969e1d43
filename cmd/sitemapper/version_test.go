package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestReadBuildInfo(t *testing.T) {
	t.Parallel()

	info := readBuildInfo()
	if info.Version == "" || info.Commit == "" || info.Date == "" {
		t.Errorf("expected every field to have a fallback, got %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected go version %q, got %q", runtime.Version(), info.GoVersion)
	}
}

func TestShortRevision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rev  string
		want string
	}{
		{"0123456789abcdef", "0123456"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortRevision(tt.rev); got != tt.want {
			t.Errorf("expected %q for %q, got %q", tt.want, tt.rev, got)
		}
	}
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	info := buildInfo{
		Version:   "v1.2.3",
		Commit:    "0123456",
		Date:      "2026-01-02T03:04:05Z",
		Modified:  true,
		GoVersion: "go1.25.0",
	}

	t.Run("full", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)
		printVersion(cmd, info, false)

		output := buf.String()
		for _, want := range []string{
			"sitemapper v1.2.3",
			"commit: 0123456 (modified)",
			"built:  2026-01-02T03:04:05Z",
			"go:     go1.25.0",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output, got %q", want, output)
			}
		}
	})

	t.Run("short", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)
		printVersion(cmd, info, true)

		if got := buf.String(); got != "v1.2.3\n" {
			t.Errorf("expected %q, got %q", "v1.2.3\n", got)
		}
	})
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints version block", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(buf.String(), "sitemapper ") {
			t.Errorf("expected output to start with %q, got %q", "sitemapper ", buf.String())
		}
	})

	t.Run("rejects arguments", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"extra"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected an error for extra arguments")
		}
	})
}
